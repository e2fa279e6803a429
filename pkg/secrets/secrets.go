// Package secrets reads JSON secrets from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
)

// ErrEmptySecret is returned when a secret has neither a string nor a binary value.
var ErrEmptySecret = errors.New("secret has no value")

// SecretsAPI is the subset of the Secrets Manager client used by Provider.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider looks up secrets by name.
type Provider struct {
	api    SecretsAPI
	logger zerolog.Logger
}

// NewProvider creates a secret provider.
func NewProvider(api SecretsAPI, logger zerolog.Logger) *Provider {
	if api == nil {
		panic("secrets api cannot be nil")
	}
	return &Provider{api: api, logger: logger}
}

// Lookup fetches the secret called name and decodes its JSON value into v.
// SecretString is preferred; SecretBinary may hold the JSON either raw or
// base64 encoded.
func (p *Provider) Lookup(ctx context.Context, name string, v any) error {
	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("get secret %q: %w", name, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(aws.ToString(out.SecretString))
	case len(out.SecretBinary) > 0:
		raw = decodeBinary(out.SecretBinary)
	default:
		return fmt.Errorf("secret %q: %w", name, ErrEmptySecret)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode secret %q: %w", name, err)
	}

	p.logger.Debug().
		Str("secret", name).
		Str("version", aws.ToString(out.VersionId)).
		Msg("Secret retrieved")

	return nil
}

func decodeBinary(data []byte) []byte {
	if json.Valid(data) {
		return data
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return data
	}
	return decoded
}
