package model

type User struct {
	Id         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	ProfilePic string   `json:"profilePic"`
	Followers  []string `json:"followers"`
	Following  []string `json:"following"`
}
