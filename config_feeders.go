package reactor

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Feeder populates a configuration structure from one source. Feeders are
// applied in order; a feeder leaves fields it has no data for untouched.
type Feeder interface {
	Feed(target any) error
}

// YamlFeeder reads configuration from a YAML file.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a YamlFeeder reading from the specified YAML file.
func NewYamlFeeder(path string) YamlFeeder {
	return YamlFeeder{Path: path}
}

// Feed reads the YAML file and populates the provided structure. Values are
// applied field by field so duration fields accept the "250ms" string form
// the yaml package cannot decode natively.
func (f YamlFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("yaml feeder: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("yaml feeder: %w", err)
	}
	if err := applyMap(raw, target, "yaml"); err != nil {
		return fmt.Errorf("yaml feeder: %w", err)
	}
	return nil
}

// TomlFeeder reads configuration from a TOML file.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a TomlFeeder reading from the specified TOML file.
func NewTomlFeeder(path string) TomlFeeder {
	return TomlFeeder{Path: path}
}

// Feed reads the TOML file and populates the provided structure.
func (f TomlFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	var raw map[string]any
	if _, err := toml.DecodeFile(f.Path, &raw); err != nil {
		return fmt.Errorf("toml feeder: %w", err)
	}
	if err := applyMap(raw, target, "toml"); err != nil {
		return fmt.Errorf("toml feeder: %w", err)
	}
	return nil
}

// EnvFeeder reads configuration from environment variables. Fields are
// matched through their `env` tag, upper-cased and joined to the prefix with
// an underscore: prefix "REACTOR" and tag "POLL_TIMEOUT" read
// REACTOR_POLL_TIMEOUT.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates an EnvFeeder with the given prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed populates tagged fields from the environment.
func (f EnvFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	rv := reflect.ValueOf(target).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag, ok := rt.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		name := strings.ToUpper(tag)
		if f.Prefix != "" {
			name = strings.ToUpper(f.Prefix) + "_" + name
		}
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := setFieldValue(rv.Field(i), value); err != nil {
			return fmt.Errorf("env feeder: field %s: %w", rt.Field(i).Name, err)
		}
	}
	return nil
}

func checkTarget(target any) error {
	rt := reflect.TypeOf(target)
	if rt == nil || rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	return nil
}

// applyMap assigns decoded file values onto tagged struct fields.
func applyMap(raw map[string]any, target any, tagName string) error {
	rv := reflect.ValueOf(target).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		tag = strings.Split(tag, ",")[0]
		value, ok := raw[tag]
		if !ok {
			continue
		}
		field := rv.Field(i)
		if str, isStr := value.(string); isStr {
			if err := setFieldValue(field, str); err != nil {
				return fmt.Errorf("field %s: %w", rt.Field(i).Name, err)
			}
			continue
		}
		vv := reflect.ValueOf(value)
		if vv.Type().ConvertibleTo(field.Type()) {
			field.Set(vv.Convert(field.Type()))
			continue
		}
		if err := setFieldValue(field, fmt.Sprintf("%v", value)); err != nil {
			return fmt.Errorf("field %s: %w", rt.Field(i).Name, err)
		}
	}
	return nil
}

// setFieldValue converts and sets a field value from its string form.
// time.Duration fields take the "1h30m" form; everything else goes through
// golobby/cast.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("cannot convert %q to time.Duration: %w", value, err)
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}
	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert %q to %v: %w", value, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}
