package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/password"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// promptPassword reads a password without echo. With fromStdin it reads one
// line from in instead, for scripted provisioning.
func promptPassword(in io.Reader, w io.Writer, fromStdin, confirm bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if !confirm {
		return string(pw), nil
	}

	fmt.Fprint(w, "Confirm password: ")
	again, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(pw) != string(again) {
		return "", errPasswordMismatch
	}
	return string(pw), nil
}

// useradd provisions or replaces a credential record in the configured store.
func useradd(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to sentineld.toml")
	envFile := fs.String("env", ".env", "optional dotenv file")
	role := fs.String("role", "", "role label stored with the record")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: sentineld useradd [flags] <username>")
	}
	username := fs.Arg(0)

	loadDotenv(*envFile)
	cfg, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}

	secret, err := promptPassword(in, out, *fromStdin, true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := goSentinel.New().
		WithConfig(cfg.engineConfig()).
		WithStore(store).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.SetCredentials(ctx, username, secret, *role); err != nil {
		return err
	}
	fmt.Fprintf(out, "provisioned %s in %s store\n", username, cfg.Store.Backend)
	return nil
}

// hashCmd prints the stored-form digest of a password.
func hashCmd(args []string, in io.Reader, out, prompt io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(out)
	algorithm := fs.String("algorithm", password.AlgorithmSHA256, "digest algorithm: sha256, blake2b-256, sha3-256")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := password.New(password.Config{Algorithm: *algorithm})
	if err != nil {
		return err
	}
	secret, err := promptPassword(in, prompt, *fromStdin, false)
	if err != nil {
		return err
	}
	digest, err := hasher.Hash(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, digest)
	return nil
}
