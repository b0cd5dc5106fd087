package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/packtgrab/packtgrab/pkg/credman/keyring"
	"github.com/urfave/cli"
)

// secretKeys are the configuration keys that may live in the keyring.
var secretKeys = []string{config.KeyPass, config.KeyAntiCaptcha, config.KeyDropbox}

var (
	newKeyring           = keyring.NewKeyring
	stdin      io.Reader = os.Stdin
)

func checkSecretKey(key string) error {
	for _, k := range secretKeys {
		if k == key {
			return nil
		}
	}
	if key == "" {
		return errors.New("no secret key provided")
	}
	return fmt.Errorf("unsupported secret key %q (want one of %s)", key, strings.Join(secretKeys, ", "))
}

func secretSet(ctx *cli.Context) error {
	key := ctx.Args().First()
	if err := checkSecretKey(key); err != nil {
		return err
	}
	value := ctx.Args().Get(1)
	if value == "" {
		fmt.Printf("Enter value for %s: ", key)
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		value = strings.TrimSpace(line)
	}
	if err := newKeyring().Set(key, value); err != nil {
		return err
	}
	fmt.Printf("Stored %s in the keyring\n", key)
	return nil
}

func secretDelete(ctx *cli.Context) error {
	key := ctx.Args().First()
	if err := checkSecretKey(key); err != nil {
		return err
	}
	err := newKeyring().Delete(key)
	if errors.Is(err, keyring.ErrSecretNotFound) {
		fmt.Printf("No %s stored in the keyring\n", key)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s from the keyring\n", key)
	return nil
}
