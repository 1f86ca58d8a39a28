package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/techblogs/skillfeed/auth"
	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/media"
	"github.com/techblogs/skillfeed/profiles"
	"github.com/techblogs/skillfeed/session"
	"github.com/techblogs/skillfeed/utils/dotenv"
	Flag "github.com/techblogs/skillfeed/utils/flag"
	. "github.com/techblogs/skillfeed/utils/log"
	"github.com/techblogs/skillfeed/workflow"
)

const usage = `usage: skillfeed <command> [args]

commands:
  login <email> <password>      log in with email/password
  login-google                  log in with a Google account
  register <name> <email> <pw>  create an account
  logout                        end the session
  feed                          show the global feed
  mine                          show your own posts
  create <description> <files>  share a post with 1-3 media files
  edit <postId> <description>   edit a post's description
  append <postId> <desc> <fs>   edit a post adding media files
  replace <postId> <desc> <fs>  edit a post replacing its media
  delete <postId>               delete a post
  claim                         re-link posts written under your name
  comments <postId>             show a post's comments
  comment <postId> <content>    comment on a post
  follow <userId>               follow a user
  unfollow <userId>             unfollow a user
  profile [userId]              show a profile, yours by default
  api-test                      probe API connectivity
`

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	if !Flag.IsDevelopment {
		os.Setenv("SKILLFEED_ENV", dotenv.ProdEnv)
	}
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	// the package-level init ran before flags and env files were read
	InitLogger()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	storePath, err := session.DefaultStorePath()
	if err != nil {
		fatal("cannot resolve session store: %v", err)
	}
	sess, err := session.Open(session.NewFileStore(storePath))
	if err != nil {
		fatal("cannot open session: %v", err)
	}

	apiBase := Flag.ApiBase
	if env := os.Getenv("SKILLFEED_API_BASE"); env != "" && apiBase == Flag.DefaultApiBase {
		apiBase = env
	}
	api := client.NewClient(apiBase)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, args, api, sess); err != nil {
		if client.IsAuthorization(err) {
			fatal("authentication required: %v", err)
		}
		fatal("%v", err)
	}
}

func run(ctx context.Context, args []string, api *client.Client, sess *session.Session) error {
	authSvc := auth.NewService(api, sess)
	profileSvc := profiles.NewService(api, sess)

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		if err := authSvc.LoginWithPassword(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", sess.Identity().Name)
		return nil

	case "login-google":
		conf := auth.GoogleConfig{
			ClientID:     os.Getenv("SKILLFEED_GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("SKILLFEED_GOOGLE_CLIENT_SECRET"),
			ListenAddr:   "127.0.0.1:9822",
		}
		if conf.ClientID == "" {
			return fmt.Errorf("SKILLFEED_GOOGLE_CLIENT_ID is not set")
		}
		if err := authSvc.LoginWithGoogle(ctx, conf, func(url string) {
			fmt.Printf("open this url in your browser:\n\n  %s\n\n", url)
		}); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", sess.Identity().Name)
		return nil

	case "register":
		if len(rest) != 3 {
			return fmt.Errorf("usage: register <name> <email> <password>")
		}
		return authSvc.Register(ctx, rest[0], rest[1], rest[2])

	case "logout":
		return authSvc.Logout()

	case "feed":
		return showFeed(ctx, api, sess, workflow.ScopeAll)

	case "mine":
		return showFeed(ctx, api, sess, workflow.ScopeAuthor)

	case "create":
		if len(rest) < 2 {
			return fmt.Errorf("usage: create <description> <file> [file file]")
		}
		m := workflow.NewManager(api, sess, workflow.ScopeAuthor)
		drafts, err := media.NewDraftSet()
		if err != nil {
			return err
		}
		defer drafts.Close()
		if err := drafts.Add(ctx, rest[1:]...); err != nil {
			return err
		}
		post, err := m.CreatePost(ctx, rest[0], drafts)
		if err != nil {
			return err
		}
		fmt.Printf("created post %s\n", post.Id)
		return nil

	case "edit", "append", "replace":
		if len(rest) < 2 {
			return fmt.Errorf("usage: %s <postId> <description> [files]", command)
		}
		m := workflow.NewManager(api, sess, workflow.ScopeAuthor)
		if _, err := m.LoadFeed(ctx); err != nil {
			return err
		}
		if err := m.BeginEdit(rest[0]); err != nil {
			return err
		}
		change := workflow.KeepExistingMedia()
		if command != "edit" {
			drafts, err := media.NewDraftSet()
			if err != nil {
				return err
			}
			defer drafts.Close()
			if err := drafts.Add(ctx, rest[2:]...); err != nil {
				return err
			}
			if command == "append" {
				change = workflow.AppendMedia(drafts)
			} else {
				change = workflow.ReplaceMedia(drafts)
			}
		}
		post, err := m.UpdatePost(ctx, rest[0], rest[1], change)
		if err != nil {
			return err
		}
		fmt.Printf("updated post %s\n", post.Id)
		return nil

	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: delete <postId>")
		}
		m := workflow.NewManager(api, sess, workflow.ScopeAuthor)
		if _, err := m.LoadFeed(ctx); err != nil {
			return err
		}
		if err := m.BeginDelete(rest[0]); err != nil {
			return err
		}
		return m.DeletePost(ctx, rest[0])

	case "claim":
		m := workflow.NewManager(api, sess, workflow.ScopeAuthor)
		report, err := m.ClaimOrphanedPosts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("claimed %d of %d matching posts (%d failed)\n", report.Claimed, report.Matched, report.Failed)
		return nil

	case "comments":
		if len(rest) != 1 {
			return fmt.Errorf("usage: comments <postId>")
		}
		m := workflow.NewManager(api, sess, workflow.ScopeAll)
		comments, users, err := m.LoadComments(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, c := range comments {
			name := c.UserName
			if u, ok := users[c.UserId]; ok {
				name = u.Name
			}
			fmt.Printf("%s: %s\n", name, c.Content)
		}
		return nil

	case "comment":
		if len(rest) != 2 {
			return fmt.Errorf("usage: comment <postId> <content>")
		}
		m := workflow.NewManager(api, sess, workflow.ScopeAll)
		comment, err := m.SubmitComment(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("comment %s added\n", comment.Id)
		return nil

	case "follow", "unfollow":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <userId>", command)
		}
		if command == "follow" {
			return profileSvc.Follow(ctx, rest[0])
		}
		return profileSvc.Unfollow(ctx, rest[0])

	case "profile":
		userId := ""
		if len(rest) > 0 {
			userId = rest[0]
		} else if identity := sess.Identity(); identity != nil {
			userId = identity.Id
		}
		if userId == "" {
			return fmt.Errorf("not logged in, pass a user id")
		}
		user, err := profileSvc.Profile(ctx, userId)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\nfollowers: %d, following: %d\n",
			user.Name, user.Email, len(user.Followers), len(user.Following))
		return nil

	case "api-test":
		status, err := api.TestConnection(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("api reachable: %s\n", status["message"])
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func showFeed(ctx context.Context, api *client.Client, sess *session.Session, scope workflow.Scope) error {
	m := workflow.NewManager(api, sess, scope)
	posts, err := m.LoadFeed(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("no posts")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("[%s] %s (%s)\n", p.Id, p.UserName, p.CreatedAt.Format(time.RFC822))
		fmt.Printf("  %s\n", p.Description)
		kinds := make([]string, 0, len(p.Media))
		for _, item := range p.Media {
			kinds = append(kinds, string(item.Type))
		}
		if len(kinds) > 0 {
			fmt.Printf("  media: %s\n", strings.Join(kinds, ", "))
		}
	}
	Log.Infof("rendered %d posts", len(posts))
	return nil
}

func init() {
	Log.Info("skillfeed client initialized")
}
