package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

var (
	// regex for arg expansion
	resolveArgRegexp = regexp.MustCompile(`\${[a-zA-Z0-9\-_.]+}`)

	globalConf = NewAppConfig()
)

// AppConfig is a thread-safe wrapper of viper.
//
// Use NewAppConfig to create an isolated instance, the package level funcs operate on a shared global one.
type AppConfig struct {
	vp   *viper.Viper
	rwmu *sync.RWMutex
}

func NewAppConfig() *AppConfig {
	return &AppConfig{vp: viper.New(), rwmu: &sync.RWMutex{}}
}

// Set value for the prop
func (a *AppConfig) SetProp(prop string, val any) {
	a.rwmu.Lock()
	defer a.rwmu.Unlock()
	a.vp.Set(prop, val)
}

// Set default value for the prop
func (a *AppConfig) SetDefProp(prop string, defVal any) {
	a.rwmu.Lock()
	defer a.rwmu.Unlock()
	a.vp.SetDefault(prop, defVal)
}

// Get prop as string slice.
//
// A plain string value (e.g., from environment variables or cli args) is split by commas or spaces,
// so 'analytics,sla-monitor' and 'analytics sla-monitor' are both two values.
func (a *AppConfig) GetPropStrSlice(prop string) []string {
	return readLocked(a, func() []string {
		if s, ok := a.vp.Get(prop).(string); ok {
			return splitList(s)
		}
		return a.vp.GetStringSlice(prop)
	})
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
}

// Get prop as int
func (a *AppConfig) GetPropInt(prop string) int {
	return readLocked(a, func() int { return a.vp.GetInt(prop) })
}

// Get prop as bool
func (a *AppConfig) GetPropBool(prop string) bool {
	return readLocked(a, func() bool { return a.vp.GetBool(prop) })
}

// Get prop as time.Duration, the value is treated as a number of units.
func (a *AppConfig) GetPropDur(prop string, unit time.Duration) time.Duration {
	return time.Duration(a.GetPropInt(prop)) * unit
}

/*
Get prop as string

If the value is an argument that can be expanded, the actual value will be resolved if possible.

e.g, for "password" : "${RABBITMQ_PASSWORD}".

This func will attempt to resolve the actual value for '${RABBITMQ_PASSWORD}' using environment variables.
*/
func (a *AppConfig) GetPropStr(prop string) string {
	return a.ResolveArg(readLocked(a, func() string { return a.vp.GetString(prop) }))
}

// Load config from io Reader.
//
// It's the caller's responsibility to close the provided reader.
func (a *AppConfig) LoadConfigFromReader(reader io.Reader) error {
	a.rwmu.Lock()
	defer a.rwmu.Unlock()
	a.vp.SetConfigType("yml")
	if err := a.vp.MergeConfig(reader); err != nil {
		return fmt.Errorf("failed to load config from reader: %v", err)
	}
	return nil
}

// Load config from string.
func (a *AppConfig) LoadConfigFromStr(s string) error {
	return a.LoadConfigFromReader(bytes.NewReader([]byte(s)))
}

// Load config from file.
func (a *AppConfig) LoadConfigFromFile(configFile string) error {
	if configFile == "" {
		return nil
	}

	f, err := os.Open(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("unable to find config file: '%s'", configFile)
		}
		return fmt.Errorf("failed to open config file: '%s', %v", configFile, err)
	}
	defer f.Close()

	if err := a.LoadConfigFromReader(f); err != nil {
		return fmt.Errorf("failed to load config file: '%s', %v", configFile, err)
	}
	return nil
}

// Overwrite existing conf using environment and cli args.
//
// Environment variables are matched by upper-casing the prop and replacing '.' and '-' with '_',
// e.g., 'rabbitmq.host' is overwritten by 'RABBITMQ_HOST'.
func (a *AppConfig) OverwriteConf(args []string) {
	keys := readLocked(a, func() []string { return a.vp.AllKeys() })
	for _, k := range keys {
		if v, ok := os.LookupEnv(envKey(k)); ok {
			a.SetProp(k, v)
		}
	}
	for k, v := range ArgKeyVal(args) {
		if len(v) == 1 {
			a.SetProp(k, v[0])
		} else {
			a.SetProp(k, v)
		}
	}
}

/*
Default way to read config.

The file is located using the 'configFile=...' arg (defaults to './conf.yml'), extra files may be specified
with 'config.extra.files'. Loaded props are then overriden by environment variables and 'KEY=VALUE' cli args.
*/
func (a *AppConfig) DefaultReadConfig(args []string, rail Rail) {
	f := GuessConfigFilePath(args)
	if err := a.LoadConfigFromFile(f); err != nil {
		rail.Debugf("Failed to load config file, file: %v, %v", f, err)
	} else {
		rail.Infof("Loaded config file: %v", f)
	}

	loaded := map[string]struct{}{f: {}}
	for _, ef := range a.GetPropStrSlice(PropConfigExtraFiles) {
		if _, ok := loaded[ef]; ok {
			continue
		}
		loaded[ef] = struct{}{}
		if err := a.LoadConfigFromFile(ef); err != nil {
			rail.Warnf("Failed to load extra config file, %v, %v", ef, err)
		} else {
			rail.Infof("Loaded extra config file: %v", ef)
		}
	}

	a.OverwriteConf(args)
}

// Resolve '${ENV}' placeholders using environment variables.
func (a *AppConfig) ResolveArg(arg string) string {
	return resolveArgRegexp.ReplaceAllStringFunc(arg, func(s string) string {
		r := []rune(s)
		key := string(r[2 : len(r)-1])
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return readLocked(a, func() string { return a.vp.GetString(key) })
	})
}

func readLocked[T any](a *AppConfig, f func() T) T {
	a.rwmu.RLock()
	defer a.rwmu.RUnlock()
	return f()
}

func envKey(prop string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(prop))
}

// Parse 'KEY=VALUE' args.
func ArgKeyVal(args []string) map[string][]string {
	m := make(map[string][]string)
	for _, s := range args {
		eq := strings.Index(s, "=")
		if eq < 1 {
			continue
		}
		k := strings.TrimSpace(s[:eq])
		m[k] = append(m[k], strings.TrimSpace(s[eq+1:]))
	}
	return m
}

// Guess config file path from 'configFile=...' arg.
func GuessConfigFilePath(args []string) string {
	for _, s := range args {
		if strings.HasPrefix(s, "configFile=") {
			return strings.TrimPrefix(s, "configFile=")
		}
	}
	return "conf.yml"
}

// Get the global config.
func GlobalConfig() *AppConfig {
	return globalConf
}

func SetProp(prop string, val any) {
	globalConf.SetProp(prop, val)
}

func SetDefProp(prop string, defVal any) {
	globalConf.SetDefProp(prop, defVal)
}

func GetPropStr(prop string) string {
	return globalConf.GetPropStr(prop)
}

func GetPropInt(prop string) int {
	return globalConf.GetPropInt(prop)
}

func GetPropBool(prop string) bool {
	return globalConf.GetPropBool(prop)
}

func GetPropDur(prop string, unit time.Duration) time.Duration {
	return globalConf.GetPropDur(prop, unit)
}

func GetPropStrSlice(prop string) []string {
	return globalConf.GetPropStrSlice(prop)
}

func DefaultReadConfig(args []string, rail Rail) {
	globalConf.DefaultReadConfig(args, rail)
}

func LoadConfigFromStr(s string) error {
	return globalConf.LoadConfigFromStr(s)
}
