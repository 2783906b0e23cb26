package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/cmdutils/internal/logging"
)

// EnvPrefix prefixes every environment variable named by an `env` tag.
const EnvPrefix = "CMDUTILS_"

// configField is the options field holding the config file path.
const configField = "Config"

var durationType = reflect.TypeOf(time.Duration(0))

// FieldError reports a configuration value that could not be applied.
type FieldError struct {
	Source string // config file path, or "environment"
	Key    string // TOML path or environment variable
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Key, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// LoadConfig fills the tagged fields of the struct opts points to, with
// precedence CLI flag > environment variable > config file. Fields whose
// flag was set on cmd are left alone. A field is bound to a TOML path by
// its `toml` tag and to EnvPrefix+name by its `env` tag; its flag name is
// derived from the field name ("LoggingLevel" is --logging-level).
//
// The config file path comes from the field named Config. A missing file
// is only an error when the path was given explicitly on the command line.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			changedFlags[f.Name] = true
		})
	}

	var fields []int
	for i := range t.NumField() {
		if v.Field(i).CanSet() && !changedFlags[fieldNameToFlag(t.Field(i).Name)] {
			fields = append(fields, i)
		}
	}

	if f := v.FieldByName(configField); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		path := f.String()
		config, err := readTOML(path, changedFlags[fieldNameToFlag(configField)])
		if err != nil {
			return err
		}
		for _, i := range fields {
			tomlPath := t.Field(i).Tag.Get("toml")
			if tomlPath == "" {
				continue
			}
			if value := getNestedValue(config, tomlPath); value != nil {
				if err := setFieldValue(v.Field(i), value); err != nil {
					return &FieldError{Source: path, Key: tomlPath, Err: err}
				}
			}
		}
	}

	for _, i := range fields {
		envKey := t.Field(i).Tag.Get("env")
		if envKey == "" {
			continue
		}
		name := EnvPrefix + envKey
		if value := os.Getenv(name); value != "" {
			if err := setFieldValueFromString(v.Field(i), value); err != nil {
				return &FieldError{Source: "environment", Key: name, Err: err}
			}
		}
	}

	return nil
}

// readTOML parses path. A missing file yields nil unless required.
func readTOML(path string, required bool) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value. Strings are parsed as they
// would be from the environment, so durations can be written "1.5s";
// a bare integer duration counts seconds.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		return setFieldValueFromString(field, s)
	}

	switch {
	case field.Type() == durationType:
		n, ok := value.(int64)
		if !ok {
			return typeMismatch(field, value)
		}
		field.SetInt(n * int64(time.Second))
	case field.Kind() == reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return typeMismatch(field, value)
		}
		field.SetBool(b)
	case isInt(field):
		n, ok := value.(int64)
		if !ok {
			return typeMismatch(field, value)
		}
		return setInt(field, n)
	case isStringSlice(field):
		arr, ok := value.([]any)
		if !ok {
			return typeMismatch(field, value)
		}
		slice := make([]string, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("element %d: want string, got %T", i, item)
			}
			slice[i] = s
		}
		field.Set(reflect.ValueOf(slice))
	default:
		return typeMismatch(field, value)
	}
	return nil
}

// setFieldValueFromString parses value into field. Slices are
// comma-separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case isInt(field):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		return setInt(field, n)
	case isStringSlice(field):
		var slice []string
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				slice = append(slice, part)
			}
		}
		field.Set(reflect.ValueOf(slice))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func isInt(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isStringSlice(field reflect.Value) bool {
	return field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String
}

func setInt(field reflect.Value, n int64) error {
	if field.OverflowInt(n) {
		return fmt.Errorf("%d overflows %s", n, field.Type())
	}
	field.SetInt(n)
	return nil
}

func typeMismatch(field reflect.Value, value any) error {
	return fmt.Errorf("want %s, got %T", field.Type(), value)
}

// LoadLoggingConfig reads the [logging] table of a TOML config file: level,
// format, and any other string key as a per-module level. Defaults are
// returned when the file is missing or unreadable; LoadConfig reports
// those errors.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	config, err := readTOML(configPath, false)
	if err != nil {
		return cfg
	}
	table, _ := config["logging"].(map[string]any)

	for key, raw := range table {
		value, ok := raw.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
