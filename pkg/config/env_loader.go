/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// envPrefix is prepended to every override variable name.
// For example POWERMON_DATABASE_HOST maps to config.Database.Host.
const envPrefix = "POWERMON_"

// applyEnvOverrides walks dst's struct fields and replaces any value that
// has a matching environment variable set. Nested structs use underscore
// separation on the field's json tag.
func applyEnvOverrides(dst interface{}, prefix string) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrConfigPtr
	}

	return overlayStruct(v.Elem(), strings.TrimSuffix(prefix, "_"))
}

func overlayStruct(v reflect.Value, prefix string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := fieldEnvName(field)
		if name == "" {
			continue
		}

		key := prefix + "_" + name
		fv := v.Field(i)

		kind := fv.Kind()
		if kind == reflect.Struct || (kind == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct) {
			if err := overlayStruct(fv, key); err != nil {
				return err
			}

			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		if err := setField(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	return nil
}

func fieldEnvName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}

	name := strings.Split(tag, ",")[0]
	if name == "" {
		name = field.Name
	}

	return strings.ToUpper(name)
}

func setField(fv reflect.Value, raw string) error {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		fv = fv.Elem()
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}

		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}

		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return nil
		}

		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))

		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}

		fv.Set(reflect.ValueOf(out))
	default:
		// Unsupported kinds are left as loaded from file.
	}

	return nil
}
