package config

import (
	"errors"
	"flag"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/omeid/uconfig/flat"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
)

const (
	TagEnv  = "env"
	TagFlag = "flag"
	TagDesc = "desc"
)

var (
	ErrEnvLoad          = errors.New("cannot load .env file")
	ErrFlagParse        = errors.New("cannot parse flag")
	ErrConfigInvalid    = errors.New("invalid config struct")
	ErrConfigValidation = errors.New("config validation error")
)

type Defaultable interface {
	SetDefaults()
}

// LoadConfig fills cfg from .env, then process env, then command line flags.
// Defaults are applied before validation.
func LoadConfig(cfg Defaultable, osArgs *[]string, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// godotenv.Load does not override variables already present in the environment
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return lib.WrapError(ErrEnvLoad, err)
		}
	}

	fields, err := flat.View(cfg)
	if err != nil {
		return lib.WrapError(ErrConfigInvalid, err)
	}

	flagset := flag.NewFlagSet("", flag.ContinueOnError)

	for _, field := range fields {
		envName, ok := field.Tag(TagEnv)
		if !ok {
			continue
		}

		if envValue, ok := os.LookupEnv(envName); ok && envValue != "" {
			// unparsable values are left zero and picked up by SetDefaults
			_ = field.Set(envValue)
		}

		flagName, ok := field.Tag(TagFlag)
		if !ok {
			continue
		}
		flagDesc, _ := field.Tag(TagDesc)
		flagset.Var(field, flagName, flagDesc)
	}

	args := os.Args
	if osArgs != nil {
		args = *osArgs
	}
	if len(args) > 0 {
		args = args[1:]
	}

	if err := flagset.Parse(args); err != nil {
		return lib.WrapError(ErrFlagParse, err)
	}

	cfg.SetDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return lib.WrapError(ErrConfigValidation, err)
	}

	return nil
}
