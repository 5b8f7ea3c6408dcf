// Command rozgar is a terminal client for the Rozgar API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/app"
	"github.com/rozgar/job-board/internal/client"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rs/zerolog"
)

const usage = `usage: rozgar <command> [flags]

commands:
  signup            create an account and verify it with the emailed code
  login             sign in, unverified accounts are asked for a code
  logout            sign out and forget the stored session
  whoami            show the signed in user
  jobs              list jobs, -q filters title or company, -skill by skill
  profile           show your profile
  profile-edit      update profile fields
  resume-upload     upload a PDF, DOC or DOCX resume
  resume-download   download a resume
  forgot-password   email a reset code and set a new password
`

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

// errorText shows the server's message for API failures and the raw error for
// local ones such as a missing file.
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return app.Message(err)
	}
	return err.Error()
}

type cli struct {
	state  *app.State
	client *client.Client
	prompt *prompter
	out    io.Writer
}

func stateDir() (string, error) {
	if dir := os.Getenv("ROZGAR_STATE_DIR"); dir != "" {
		return dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to find config dir, set ROZGAR_STATE_DIR")
	}
	return filepath.Join(dir, "rozgar"), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	baseURL := os.Getenv("ROZGAR_API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	dir, err := stateDir()
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()
	// resume uploads can outlast the client's default timeout
	c, err := client.New(baseURL, client.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}))
	if err != nil {
		return err
	}
	state := app.New(c, app.NewFileStorage(dir), logger)
	if err := state.Restore(); err != nil {
		return err
	}
	cmd := &cli{state: state, client: c, prompt: newPrompter(stdin, stdout), out: stdout}

	name, rest := args[0], args[1:]
	switch name {
	case "signup":
		return cmd.signup(ctx, rest)
	case "login":
		return cmd.login(ctx, rest)
	case "logout":
		return cmd.logout(ctx)
	case "whoami":
		return cmd.whoami()
	case "jobs":
		return cmd.jobs(ctx, rest)
	case "profile":
		return cmd.profile(ctx)
	case "profile-edit":
		return cmd.profileEdit(ctx, rest)
	case "resume-upload":
		return cmd.resumeUpload(ctx, rest)
	case "resume-download":
		return cmd.resumeDownload(ctx, rest)
	case "forgot-password":
		return cmd.forgotPassword(ctx, rest)
	}
	fmt.Fprint(stdout, usage)
	return errors.Errorf("unknown command %q", name)
}

func (c *cli) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	role := fs.String("role", "seeker", "seeker or recruiter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *name, err = c.prompt.textOr(*name, "Name"); err != nil {
		return err
	}
	if *email, err = c.prompt.textOr(*email, "Email"); err != nil {
		return err
	}
	password, err := c.prompt.password("Password")
	if err != nil {
		return err
	}
	if err := c.state.Signup(ctx, *name, *email, password, *role); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Account created. We sent a verification code to %s.\n", *email)
	return c.verify(ctx)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *email, err = c.prompt.textOr(*email, "Email"); err != nil {
		return err
	}
	password, err := c.prompt.password("Password")
	if err != nil {
		return err
	}
	if err := c.state.Login(ctx, *email, password); err != nil {
		return err
	}
	if c.state.Snapshot().Step == app.StepVerify {
		fmt.Fprintf(c.out, "Please verify your email. We sent a code to %s.\n", *email)
		return c.verify(ctx)
	}
	fmt.Fprintf(c.out, "Welcome back, %s!\n", c.state.Snapshot().User.Name)
	return nil
}

// verify asks for the emailed code. The pending token only lives in this
// process, so it runs as part of signup and login.
func (c *cli) verify(ctx context.Context) error {
	code, err := c.prompt.text("Verification code")
	if err != nil {
		return err
	}
	if err := c.state.VerifyOTP(ctx, code); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Email verified, you are signed in.")
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.state.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func (c *cli) requireSignedIn() (app.Snapshot, error) {
	snap := c.state.Snapshot()
	if !snap.IsAuthenticated() {
		return snap, errors.New("not signed in, run rozgar login")
	}
	return snap, nil
}

func (c *cli) whoami() error {
	snap, err := c.requireSignedIn()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> (%s)\n", snap.User.Name, snap.User.Email, snap.User.Role)
	return nil
}

func (c *cli) jobs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	q := fs.String("q", "", "search title or company")
	skill := fs.String("skill", "", "only jobs requiring this skill")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := c.client.Jobs(ctx, *q, *skill)
	if err != nil {
		return err
	}
	if len(res.Jobs) == 0 {
		fmt.Fprintln(c.out, "No jobs found matching your criteria")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCOMPANY\tLOCATION\tTYPE\tSKILLS\tPOSTED")
	for _, j := range res.Jobs {
		title := j.Title
		if j.IsAISourced() {
			title += " [AI]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", title, j.Company, j.Location, j.Type, strings.Join(j.Skills, ", "), j.PostedAgo)
	}
	return tw.Flush()
}

func printProfile(w io.Writer, p *profile.Profile) {
	fmt.Fprintf(w, "%s <%s>\n", p.Name, p.Email)
	if p.Headline != "" {
		fmt.Fprintln(w, p.Headline)
	}
	if p.Location != "" {
		fmt.Fprintf(w, "Location: %s\n", p.Location)
	}
	if p.Phone != "" {
		fmt.Fprintf(w, "Phone: %s\n", p.Phone)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(w, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	if p.Bio != "" {
		fmt.Fprintf(w, "\n%s\n\n", p.Bio)
	}
	if p.Resume != nil {
		fmt.Fprintf(w, "Resume: %s\n", p.Resume.FileName)
	}
	fmt.Fprintf(w, "Profile %d%% complete\n", p.ProfileCompletion)
}

func (c *cli) profile(ctx context.Context) error {
	if _, err := c.requireSignedIn(); err != nil {
		return err
	}
	res, err := c.client.Profile(ctx)
	if err != nil {
		return err
	}
	c.state.SetProfile(res.Profile)
	printProfile(c.out, res.Profile)
	return nil
}

func (c *cli) profileEdit(ctx context.Context, args []string) error {
	if _, err := c.requireSignedIn(); err != nil {
		return err
	}
	current, err := c.client.Profile(ctx)
	if err != nil {
		return err
	}
	p := current.Profile
	in := client.ProfileInput{
		Name:     p.Name,
		Headline: p.Headline,
		Location: p.Location,
		Bio:      p.Bio,
		Phone:    p.Phone,
		Skills:   p.Skills,
	}
	fs := flag.NewFlagSet("profile-edit", flag.ContinueOnError)
	fs.StringVar(&in.Name, "name", in.Name, "full name")
	fs.StringVar(&in.Headline, "headline", in.Headline, "one line headline")
	fs.StringVar(&in.Location, "location", in.Location, "city or Remote")
	fs.StringVar(&in.Bio, "bio", in.Bio, "short bio")
	fs.StringVar(&in.Phone, "phone", in.Phone, "phone number")
	skills := fs.String("skills", strings.Join(in.Skills, ","), "comma separated skills")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.Skills = splitSkills(*skills)
	res, err := c.client.SaveProfile(ctx, in)
	if err != nil {
		return err
	}
	c.state.SetProfile(res.Profile)
	printProfile(c.out, res.Profile)
	return nil
}

func splitSkills(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *cli) resumeUpload(ctx context.Context, args []string) error {
	snap, err := c.requireSignedIn()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: rozgar resume-upload <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := c.client.UploadResume(ctx, snap.User.Email, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	c.state.SetProfile(res.Profile)
	fmt.Fprintf(c.out, "Resume uploaded, profile %d%% complete\n", res.Profile.ProfileCompletion)
	return nil
}

func (c *cli) resumeDownload(ctx context.Context, args []string) error {
	snap, err := c.requireSignedIn()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("resume-download", flag.ContinueOnError)
	email := fs.String("email", snap.User.Email, "whose resume to download")
	out := fs.String("o", "", "output file, defaults to the uploaded file name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(".", ".resume-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	name, err := c.client.DownloadResume(ctx, *email, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	dst := *out
	if dst == "" {
		dst = filepath.Base(name)
	}
	if dst == "" || dst == "." {
		dst = "resume"
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved %s\n", dst)
	return nil
}

func (c *cli) forgotPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot-password", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *email, err = c.prompt.textOr(*email, "Email"); err != nil {
		return err
	}
	if _, err := c.client.SendResetOTP(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "We sent a reset code to %s.\n", *email)
	code, err := c.prompt.text("Reset code")
	if err != nil {
		return err
	}
	password, err := c.prompt.password("New password")
	if err != nil {
		return err
	}
	if _, err := c.client.ResetPassword(ctx, *email, code, password); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Password updated, you can now log in.")
	return nil
}
