package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"taskboard/apperrors"
	"taskboard/authform"
	"taskboard/client"
	"taskboard/config"
	"taskboard/firebase"
	"taskboard/models"
	"taskboard/uistate"
)

var (
	serverURL   string
	sessionFile string
	email       string
)

const requestTimeout = 15 * time.Second

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and open a server session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv(cmd.Context())
		if err != nil {
			return err
		}
		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		jar, err := cookiejar.New(nil)
		if err != nil {
			return fmt.Errorf("create cookie jar: %w", err)
		}
		hc := &http.Client{Jar: jar, Timeout: requestTimeout}

		form := authform.New(client.NewAuth(env.provider, env.storage), client.EndpointPropagator{BaseURL: env.server, HTTPClient: hc})
		res, err := form.SignIn(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if res.State == uistate.Failed {
			return errors.New(res.Message)
		}

		landed, err := client.Navigate(cmd.Context(), hc, env.server, res.Redirect)
		if err != nil {
			return fmt.Errorf("open %s: %s", res.Redirect, apperrors.Message(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", res.Session.User.Email, landed)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv(cmd.Context())
		if err != nil {
			return err
		}
		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		form := authform.New(client.NewAuth(env.provider, env.storage), nil)
		res, err := form.SignUp(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if res.State == uistate.Failed {
			return errors.New(res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session on the server and forget it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv(cmd.Context())
		if err != nil {
			return err
		}
		auth := client.NewAuth(env.provider, env.storage)
		if sess, err := auth.GetSession(cmd.Context()); err == nil && sess != nil {
			api := client.TaskAPI{BaseURL: env.server, HTTPClient: &http.Client{Timeout: requestTimeout}, Token: sess.AccessToken}
			if err := api.SignOut(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "server sign-out failed: %s\n", apperrors.Message(err))
			}
		}
		if err := auth.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newTaskList(cmd.Context())
		if err != nil {
			return err
		}
		if err := list.Load(cmd.Context()); err != nil {
			return errors.New(apperrors.Message(err))
		}
		printTasks(cmd.OutOrStdout(), list.Tasks())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newTaskList(cmd.Context())
		if err != nil {
			return err
		}
		if err := list.Load(cmd.Context()); err != nil {
			return errors.New(apperrors.Message(err))
		}
		if err := list.Delete(cmd.Context(), args[0]); err != nil {
			return errors.New(apperrors.Message(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s, %d task(s) left\n", args[0], len(list.Tasks()))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd, logoutCmd, listCmd, deleteCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default $TASKBOARD_SERVER_URL)")
		cmd.Flags().StringVar(&sessionFile, "session-file", "", "where the session is kept (default $TASKBOARD_SESSION_FILE)")
	}
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd} {
		cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
		_ = cmd.MarkFlagRequired("email")
	}
}

// clientEnv is what every client command needs.
type clientEnv struct {
	server   string
	storage  client.Storage
	provider client.Provider
}

func newClientEnv(ctx context.Context) (clientEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return clientEnv{}, err
	}
	storage, err := sessionStorage(cfg.Client)
	if err != nil {
		return clientEnv{}, err
	}
	passwords, err := firebase.NewPasswordAuth(ctx, cfg.Firebase.APIKey, cfg.Firebase.Endpoint)
	if err != nil {
		return clientEnv{}, err
	}
	server := cfg.Client.ServerURL
	if serverURL != "" {
		server = serverURL
	}
	return clientEnv{
		server:   server,
		storage:  storage,
		provider: firebase.New(nil, passwords, cfg.Firebase.Timeout),
	}, nil
}

func sessionStorage(cfg config.Client) (client.FileStorage, error) {
	path := cfg.SessionFile
	if sessionFile != "" {
		path = sessionFile
	}
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return client.FileStorage{}, err
		}
	}
	return client.FileStorage{Path: path}, nil
}

// newTaskList builds a task list backed by the JSON API, authenticated with
// the stored session.
func newTaskList(ctx context.Context) (*client.TaskList, error) {
	env, err := newClientEnv(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := client.NewAuth(env.provider, env.storage).GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("not signed in, run taskboard login first")
	}
	api := client.TaskAPI{BaseURL: env.server, HTTPClient: &http.Client{Timeout: requestTimeout}, Token: sess.AccessToken}
	return client.NewTaskList(api), nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the password can be piped in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printTasks(out io.Writer, list []models.Task) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No tasks yet")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tHOURS")
	for _, t := range list {
		due := "-"
		if !t.DueDate.IsZero() {
			due = t.DueDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%g/%g\n",
			t.ID, t.Title, t.Status.Label(), t.Priority.Label(), due, t.ActualHours, t.EstimatedHours)
	}
	_ = tw.Flush()
}
