package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// envPrefix prefixes every environment override, e.g. FRACTALC_LOG_LEVEL.
const envPrefix = "FRACTALC"

// Opt is a single command-line option
type Opt struct {
	DestP   any // pointer to the destination
	Flag    string
	Short   string
	Default any
	Desc    string
}

// newViper returns a viper instance that resolves FRACTALC_* variables,
// normalizing "-" in flag names to "_".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return v
}

// BindOptions adds opts to fs and registers them with v. Environment values
// become the effective defaults; an explicit flag still wins.
func BindOptions(v *viper.Viper, fs *pflag.FlagSet, opts []Opt) {
	for _, o := range opts {
		switch destP := o.DestP.(type) {
		case *string:
			var d string
			if o.Default != nil {
				d = o.Default.(string)
			}
			fs.StringVarP(destP, o.Flag, o.Short, d, o.Desc)
			mustBindPFlag(v, fs, o.Flag)
			*destP = v.GetString(o.Flag)
		case *int:
			var d int
			if o.Default != nil {
				d = o.Default.(int)
			}
			fs.IntVarP(destP, o.Flag, o.Short, d, o.Desc)
			mustBindPFlag(v, fs, o.Flag)
			*destP = v.GetInt(o.Flag)
		case *bool:
			var d bool
			if o.Default != nil {
				d = o.Default.(bool)
			}
			fs.BoolVarP(destP, o.Flag, o.Short, d, o.Desc)
			mustBindPFlag(v, fs, o.Flag)
			*destP = v.GetBool(o.Flag)
		case *[]string:
			var d []string
			if o.Default != nil {
				d = o.Default.([]string)
			}
			fs.StringSliceVarP(destP, o.Flag, o.Short, d, o.Desc)
			mustBindPFlag(v, fs, o.Flag)
			*destP = v.GetStringSlice(o.Flag)
		case *zapcore.Level:
			var d zapcore.Level
			if o.Default != nil {
				d = o.Default.(zapcore.Level)
			}
			fs.VarP(newLevelValue(d, destP), o.Flag, o.Short, o.Desc)
			mustBindPFlag(v, fs, o.Flag)
			if s := v.GetString(o.Flag); s != "" {
				if err := destP.Set(s); err != nil {
					panic(fmt.Errorf("%s: %w", o.Flag, err))
				}
			}
		default:
			panic(fmt.Errorf("unknown destination type %T", o.DestP))
		}
	}
}

func mustBindPFlag(v *viper.Viper, fs *pflag.FlagSet, key string) {
	if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
		panic(err)
	}
}

type levelValue zapcore.Level

func newLevelValue(val zapcore.Level, p *zapcore.Level) *levelValue {
	*p = val
	return (*levelValue)(p)
}

func (l *levelValue) String() string {
	return zapcore.Level(*l).String()
}

func (l *levelValue) Set(s string) error {
	var level zapcore.Level
	if err := level.Set(s); err != nil {
		return fmt.Errorf("unknown log level; supported levels are debug, info, warn, error")
	}
	*l = levelValue(level)
	return nil
}

func (l *levelValue) Type() string {
	return "Log-Level"
}

// noArgs mirrors cobra.NoArgs with a friendlier message.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}
