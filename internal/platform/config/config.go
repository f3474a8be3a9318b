// Package config reads settings from the environment. Each module takes a
// Conf scoped to its prefix and reads its keys with a default; an unparsable
// value is logged and replaced by the default so one typo does not stop a run
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
)

// Conf is a view of the environment under a key prefix such as "CORE_CLUSTER_"
type Conf struct{ prefix string }

func New() Conf { return Conf{} }

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// parsed reads key with parse, falling back to def when the key is unset or bad
func parsed[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msg("config: unparsable value, using default")
		return def
	}
	return v
}

func (c Conf) MayString(key, def string) string {
	if s := c.lookup(key); s != "" {
		return s
	}
	return def
}

func (c Conf) MayInt(key string, def int) int { return parsed(c, key, def, strconv.Atoi) }

func (c Conf) MayFloat64(key string, def float64) float64 {
	return parsed(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (c Conf) MayBool(key string, def bool) bool { return parsed(c, key, def, strconv.ParseBool) }

func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return parsed(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blank items. def is returned
// when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.lookup(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the allowed value matching key case insensitively. Unlike
// the other readers a value outside allowed is not silently replaced: it
// selects a different algorithm, so it is logged at error level
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	logger.Get().Error().Str("key", c.key(key)).Str("value", s).Strs("allowed", allowed).
		Msg("config: value not allowed, using default")
	return def
}

// URL returns key as an absolute URL. Missing or relative values are
// configuration errors
func (c Conf) URL(key string) (*url.URL, error) {
	s := c.lookup(key)
	if s == "" {
		return nil, perr.Configf("%s is required", c.key(key))
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return nil, perr.WithField(perr.Configf("%s is not an absolute URL", c.key(key)), c.key(key))
	}
	return u, nil
}
