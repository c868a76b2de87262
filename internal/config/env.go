package config

import (
	"fmt"
	"os"
	"strings"
)

// Env is a deployment mode. It picks the policy table, the users table and
// the alias of every downstream function.
type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

// Envs lists every environment in a stable order.
var Envs = []Env{EnvDev, EnvProd}

func (e Env) String() string { return string(e) }

func (e Env) Valid() bool {
	return e == EnvDev || e == EnvProd
}

func ParseEnv(s string) (Env, error) {
	e := Env(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("unknown environment %q", s)
	}
	return e, nil
}

// DetectEnv reports dev when running outside Lambda or on the unpublished
// $LATEST version, prod otherwise.
func DetectEnv() Env {
	_, inLambda := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME")
	if !inLambda {
		_, inLambda = os.LookupEnv("AWS_EXECUTION_ENV")
	}
	if !inLambda || os.Getenv("AWS_LAMBDA_FUNCTION_VERSION") == "$LATEST" {
		return EnvDev
	}
	return EnvProd
}
