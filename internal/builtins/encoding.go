package builtins

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerEncoding(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"base64encode", nil, base64encodeFilter, "standard base64 encoding of the target's text"},
		filterDef{"base64decode", nil, base64decodeFilter, "decodes standard base64 text"},
		filterDef{"sha256", nil, sha256Filter, "hex SHA-256 digest of the target's UTF-8 text"},
	)
}

func base64encodeFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	return value.Text(base64.StdEncoding.EncodeToString([]byte(target.String()))), nil
}

func base64decodeFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	s, err := scalarText("base64decode", target)
	if err != nil {
		return value.Null(), err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return value.Null(), schema.NewError(schema.ErrCodeFormat, "input is not valid base64").
			WithExtension("base64decode").
			WithCause(err)
	}
	return value.Text(string(decoded)), nil
}

func sha256Filter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	s, err := scalarText("sha256", target)
	if err != nil {
		return value.Null(), err
	}
	sum := sha256.Sum256([]byte(s))
	return value.Text(hex.EncodeToString(sum[:])), nil
}
