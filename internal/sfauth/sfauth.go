// Package sfauth obtains Salesforce session credentials by delegating to the
// Salesforce CLI (sf or the legacy sfdx).
package sfauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// TokenSource yields credentials for an org alias.
type TokenSource interface {
	Token(ctx context.Context, alias string) (core.Credentials, error)
}

// Func adapts a plain function to TokenSource.
type Func func(ctx context.Context, alias string) (core.Credentials, error)

// Token calls f.
func (f Func) Token(ctx context.Context, alias string) (core.Credentials, error) {
	return f(ctx, alias)
}

// Static returns a TokenSource that always yields creds.
func Static(creds core.Credentials) TokenSource {
	return Func(func(context.Context, string) (core.Credentials, error) {
		return creds, nil
	})
}

// Runner executes name with args and returns stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// LookPath resolves an executable name on PATH.
type LookPath func(file string) (string, error)

// candidates are probed in order; the .cmd shims come first for Windows shells.
var candidates = []string{"sf.cmd", "sf", "sfdx.cmd", "sfdx"}

// CLI is a TokenSource backed by the Salesforce CLI.
type CLI struct {
	// Path overrides CLI discovery when set.
	Path string
	// LoginURL is passed to the web login flow (login.salesforce.com, test.salesforce.com, or a My Domain URL).
	LoginURL string
	// InteractiveLogin runs a single web login when the org display fails.
	InteractiveLogin bool

	Logger   *slog.Logger
	Run      Runner
	LookPath LookPath
}

// NewCLI returns a CLI token source using the real process runner.
func NewCLI(logger *slog.Logger) *CLI {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CLI{
		Logger:   logger,
		Run:      execRunner,
		LookPath: exec.LookPath,
	}
}

// Token implements TokenSource.
func (c *CLI) Token(ctx context.Context, alias string) (core.Credentials, error) {
	if strings.TrimSpace(alias) == "" {
		return core.Credentials{}, &core.ConfigError{Field: "alias", Reason: "is required"}
	}

	cli, err := c.pick()
	if err != nil {
		return core.Credentials{}, err
	}
	c.logger().Debug("using salesforce cli", "cli", cli, "alias", alias)

	creds, err := c.display(ctx, cli, alias)
	if err == nil || !c.InteractiveLogin {
		return creds, err
	}

	c.logger().Info("org display failed, starting web login", "alias", alias, "error", err)
	if err := c.loginWeb(ctx, cli, alias); err != nil {
		return core.Credentials{}, err
	}
	return c.display(ctx, cli, alias)
}

func (c *CLI) pick() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}

	look := c.LookPath
	if look == nil {
		look = exec.LookPath
	}
	for _, name := range candidates {
		if _, err := look(name); err == nil {
			return name, nil
		}
	}
	return "", &core.AuthError{
		Err: errors.New("salesforce CLI not found on PATH; verify `sf --version` works in this terminal"),
	}
}

func (c *CLI) display(ctx context.Context, cli, alias string) (core.Credentials, error) {
	var args []string
	if isSF(cli) {
		args = []string{"org", "display", "--json", "--target-org", alias}
	} else {
		args = []string{"force:org:display", "--json", "-u", alias}
	}

	stdout, err := c.exec(ctx, cli, args...)
	if err != nil {
		return core.Credentials{}, err
	}
	return ParseOrgDisplay(commandLine(cli, args), stdout)
}

func (c *CLI) loginWeb(ctx context.Context, cli, alias string) error {
	var args []string
	if isSF(cli) {
		args = []string{"org", "login", "web", "--alias", alias}
		if c.LoginURL != "" {
			args = append(args, "--instance-url", c.LoginURL)
		}
	} else {
		args = []string{"force:auth:web:login", "-a", alias}
		if c.LoginURL != "" {
			args = append(args, "-r", c.LoginURL)
		}
	}

	_, err := c.exec(ctx, cli, args...)
	return err
}

func (c *CLI) exec(ctx context.Context, cli string, args ...string) ([]byte, error) {
	run := c.Run
	if run == nil {
		run = execRunner
	}

	stdout, stderr, err := run(ctx, cli, args...)
	if err != nil {
		return nil, &core.AuthError{
			Command: commandLine(cli, args),
			Stderr:  string(stderr),
			Err:     err,
		}
	}
	return stdout, nil
}

func (c *CLI) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// ParseOrgDisplay extracts credentials from `org display --json` output.
func ParseOrgDisplay(command string, out []byte) (core.Credentials, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return core.Credentials{}, &core.AuthError{Command: command, Err: errors.New("returned no output")}
	}
	if !gjson.ValidBytes(out) {
		return core.Credentials{}, &core.AuthError{Command: command, Err: errors.New("returned invalid JSON output")}
	}

	res := gjson.ParseBytes(out)
	creds := core.Credentials{
		AccessToken: res.Get("result.accessToken").String(),
		InstanceURL: strings.TrimRight(res.Get("result.instanceUrl").String(), "/"),
	}
	if creds.AccessToken == "" || creds.InstanceURL == "" {
		msg := "could not extract accessToken/instanceUrl from Salesforce CLI output"
		if m := res.Get("message").String(); m != "" {
			msg = fmt.Sprintf("%s: %s", msg, m)
		}
		return core.Credentials{}, &core.AuthError{Command: command, Err: errors.New(msg)}
	}
	return creds, nil
}

// isSF reports whether cli is the current sf executable rather than legacy sfdx.
func isSF(cli string) bool {
	name := strings.ToLower(filepath.Base(cli))
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".cmd"), ".exe")
	return name != "sfdx"
}

func commandLine(cli string, args []string) string {
	return strings.Join(append([]string{cli}, args...), " ")
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
