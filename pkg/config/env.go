package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/packtgrab/packtgrab/common"
)

// loadDotEnv exports the variables of a dotenv file into the process
// environment. Variables already set are left untouched. A missing file is
// not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		env string
		dst *string
	}{
		{common.NameEnv, &c.Name},
		{common.PassEnv, &c.Pass},
		{common.AntiCaptchaEnv, &c.AntiCaptcha},
		{common.IFTTTEnv, &c.IFTTT},
		{common.DropboxEnv, &c.Dropbox},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.env); ok && v != "" {
			*o.dst = v
		}
	}
}
