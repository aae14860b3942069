package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authflow "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/callbackserver"
	"github.com/MrEthical07/goAuthClient/internal/logging"
	"github.com/MrEthical07/goAuthClient/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: authflow [-config file] <command> [args]

commands:
  signup          -email E -password P [-name N] [-phone +1...]
  login           interactive email/password login with phone code
  callback <url>  handle a confirmation link URL
  serve-callback  run the confirmation landing page
  dashboard       show the signed-in user and profile
  signout         end the current session
  metrics         print metrics in Prometheus format
`

func main() {
	configPath := flag.String("config", "", "YAML config file; AUTHFLOW_* environment variables override it")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := authflow.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0), flag.Args()[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg authflow.Config, cmd string, args []string, in io.Reader, out io.Writer) error {
	b := authflow.New().
		WithConfig(cfg).
		WithNavigator(authflow.NavigatorFunc(func(path string) {
			fmt.Fprintf(out, "-> %s\n", path)
		}))

	needsRedis := cfg.Session.Backend == "redis" || cfg.Verification.SendLimit.Enabled
	if needsRedis && cfg.Session.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()
		fmt.Fprintf(out, "using embedded redis at %s (state is lost on exit)\n", mr.Addr())
		b.WithRedis(rdb)
	}

	engine, err := b.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	switch cmd {
	case "signup":
		return signUp(ctx, engine, args, out)
	case "login":
		return login(ctx, engine, in, out)
	case "callback":
		if len(args) != 1 {
			return errors.New("expected one URL argument")
		}
		return callback(ctx, engine, cfg, args[0], out)
	case "serve-callback":
		return serve(ctx, engine, cfg, out)
	case "dashboard":
		return dashboard(ctx, engine, out)
	case "signout":
		if err := engine.SignOut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Signed out.")
		return nil
	case "metrics":
		fmt.Fprint(out, prometheus.NewPrometheusExporter(engine).Render())
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func signUp(ctx context.Context, engine *authflow.Engine, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number in E.164 format")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := engine.SignUp(ctx, authflow.SignUpRequest{
		Email:       *email,
		Password:    *password,
		FullName:    *name,
		PhoneNumber: *phone,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func login(ctx context.Context, engine *authflow.Engine, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	flow := engine.NewLoginFlow()

	for {
		email, err := prompt(r, out, "Email: ")
		if err != nil {
			return err
		}
		password, err := prompt(r, out, "Password: ")
		if err != nil {
			return err
		}
		view, err := flow.Submit(ctx, email, password)
		if err != nil {
			fmt.Fprintln(out, view.Error)
			continue
		}
		if view.State == authflow.LoginAuthenticated {
			return dashboard(ctx, engine, out)
		}
		fmt.Fprintf(out, "A verification code will be sent to %s.\n", view.Phone)
		break
	}

	for {
		view, err := flow.SendCode(ctx)
		if err != nil {
			fmt.Fprintln(out, view.Error)
			if view.State == authflow.LoginIdle {
				return err
			}
			answer, perr := prompt(r, out, "Retry sending? [y/N] ")
			if perr != nil || answer != "y" {
				return err
			}
			continue
		}
		fmt.Fprintln(out, view.Message)

		for {
			code, err := prompt(r, out, "Code (empty to resend): ")
			if err != nil {
				return err
			}
			if code == "" {
				break
			}
			view, err = flow.VerifyCode(ctx, code)
			if err == nil {
				return dashboard(ctx, engine, out)
			}
			fmt.Fprintln(out, view.Error)
			if view.State == authflow.LoginIdle {
				return err
			}
		}
	}
}

func callback(ctx context.Context, engine *authflow.Engine, cfg authflow.Config, rawURL string, out io.Writer) error {
	res, err := engine.HandleCallback(ctx, rawURL)
	fmt.Fprintln(out, res.Message)
	if err != nil {
		return err
	}
	if res.RedirectScheduled {
		// Let the scheduled navigation run before the process exits.
		select {
		case <-time.After(cfg.Callback.RedirectDelay + 100*time.Millisecond):
		case <-ctx.Done():
		}
	}
	return nil
}

func serve(ctx context.Context, engine *authflow.Engine, cfg authflow.Config, out io.Writer) error {
	log, err := logging.New(cfg.Log.Mode, logging.Options{
		Level:            cfg.Log.Level,
		DisableRedaction: cfg.Log.DisableRedaction,
		HashSalt:         cfg.Log.HashSalt,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	if strings.EqualFold(cfg.Log.Mode, "prod") || strings.EqualFold(cfg.Log.Mode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := callbackserver.NewHandler(engine, log, cfg.Callback.RedirectDelay).Router()
	router.GET("/metrics", gin.WrapH(prometheus.NewPrometheusExporter(engine).Handler()))

	srv := &http.Server{
		Addr:              cfg.Callback.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(out, "listening on %s\n", cfg.Callback.ListenAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func dashboard(ctx context.Context, engine *authflow.Engine, out io.Writer) error {
	view, err := engine.LoadDashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s (%s)\n", view.User.Email, view.User.ID)
	fmt.Fprintf(out, "Member since %s\n", view.CreatedAt.Format(time.RFC1123))
	if view.LastSignInAt != nil {
		fmt.Fprintf(out, "Last sign-in %s\n", view.LastSignInAt.Format(time.RFC1123))
	}
	if p := view.Profile; p != nil {
		fmt.Fprintf(out, "Name:  %s\nPhone: %s\n", p.FullName, p.PhoneNumber)
	}
	if view.ProfileCreated {
		fmt.Fprintln(out, "(profile created)")
	}
	return nil
}

// prompt reads one line. io.EOF is returned only when the input ended
// before any text.
func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
