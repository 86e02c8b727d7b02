// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/proctor-works/proctor/lib/credential"
	"github.com/proctor-works/proctor/lib/sealed"
	"github.com/proctor-works/proctor/lib/secret"
	"github.com/proctor-works/proctor/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "keygen":
		return runKeygen()
	case "set":
		return runSet(os.Args[2:])
	case "list":
		return runList(os.Args[2:])
	case "version", "--version":
		fmt.Printf("proctor-credentials %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: proctor-credentials <subcommand> [flags]

Subcommands:
  keygen   Generate an age keypair for the bridge
  set      Add or update a capability secret in a bundle
  list     List bundle capabilities and their derived references
  version  Print version information

Run 'proctor-credentials <subcommand> --help' for subcommand flags.
`)
}

// runKeygen generates a new age keypair. The public key goes to stdout
// (for --recipient flags); the private key goes to stderr so a shell
// redirect of stdout cannot accidentally capture it.
func runKeygen() error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}
	defer keypair.Close()

	fmt.Fprintf(os.Stderr, "# Private key (keep this secret — store securely):\n")
	fmt.Fprintf(os.Stderr, "%s\n", keypair.PrivateKey.String())
	fmt.Fprintf(os.Stdout, "%s\n", keypair.PublicKey)
	return nil
}

func runSet(args []string) error {
	var (
		bundlePath   string
		identityPath string
		recipients   []string
		capability   string
		secretFile   string
	)
	flagSet := pflag.NewFlagSet("proctor-credentials set", pflag.ContinueOnError)
	flagSet.StringVar(&bundlePath, "bundle", "", "bundle file to create or update (required)")
	flagSet.StringVar(&identityPath, "identity", "", "age identity key file, needed to update an existing bundle")
	flagSet.StringSliceVar(&recipients, "recipient", nil, "age public key to encrypt to (repeatable, required)")
	flagSet.StringVar(&capability, "capability", "", "capability identifier, e.g. desktop/control or browser/** (required)")
	flagSet.StringVar(&secretFile, "secret-file", "", "file holding the secret value, or - for stdin (default: prompt)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if bundlePath == "" || capability == "" {
		return fmt.Errorf("--bundle and --capability are required")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("at least one --recipient is required")
	}
	for _, recipient := range recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return fmt.Errorf("recipient %q: %w", recipient, err)
		}
	}

	bundle := map[string]string{}
	if _, err := os.Stat(bundlePath); err == nil {
		if identityPath == "" {
			return fmt.Errorf("--identity is required to update an existing bundle")
		}
		if err := loadBundle(bundlePath, identityPath, &bundle); err != nil {
			return err
		}
	}

	value, err := readSecretValue(secretFile, capability)
	if err != nil {
		return err
	}
	defer value.Close()
	bundle[capability] = value.String()

	ciphertext, err := sealed.EncryptJSON(bundle, recipients)
	if err != nil {
		return fmt.Errorf("encrypting bundle: %w", err)
	}
	if err := os.WriteFile(bundlePath, ciphertext, 0600); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	ref := credential.DeriveRef(capability, value.Bytes())
	fmt.Printf("%s  %s  (%d capabilities in bundle)\n", capability, ref, len(bundle))
	return nil
}

func runList(args []string) error {
	var (
		bundlePath   string
		identityPath string
	)
	flagSet := pflag.NewFlagSet("proctor-credentials list", pflag.ContinueOnError)
	flagSet.StringVar(&bundlePath, "bundle", "", "bundle file to inspect (required)")
	flagSet.StringVar(&identityPath, "identity", "", "age identity key file (required)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if bundlePath == "" || identityPath == "" {
		return fmt.Errorf("--bundle and --identity are required")
	}

	bundle := map[string]string{}
	if err := loadBundle(bundlePath, identityPath, &bundle); err != nil {
		return err
	}

	capabilities := make([]string, 0, len(bundle))
	for capability := range bundle {
		capabilities = append(capabilities, capability)
	}
	sort.Strings(capabilities)

	// Refs only. The secret values stay out of the output.
	for _, capability := range capabilities {
		fmt.Printf("%s  %s\n", capability, credential.DeriveRef(capability, []byte(bundle[capability])))
	}
	return nil
}

func loadBundle(bundlePath, identityPath string, bundle *map[string]string) error {
	identityKey, err := secret.ReadFromPath(identityPath)
	if err != nil {
		return fmt.Errorf("reading identity key: %w", err)
	}
	defer identityKey.Close()

	ciphertext, err := os.ReadFile(bundlePath)
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}
	if err := sealed.DecryptJSON(ciphertext, identityKey, bundle); err != nil {
		return fmt.Errorf("decrypting bundle %s: %w", bundlePath, err)
	}
	return nil
}

// readSecretValue obtains the secret from a file, stdin, or an
// interactive no-echo prompt.
func readSecretValue(secretFile, capability string) (*secret.Buffer, error) {
	if secretFile != "" {
		return secret.ReadFromPath(secretFile)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; use --secret-file (or --secret-file - for stdin)")
	}
	fmt.Fprintf(os.Stderr, "Secret for %s: ", capability)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	return secret.NewFromBytes(value)
}
