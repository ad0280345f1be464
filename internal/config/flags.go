package config

import "flag"

// OverrideBool copies the named bool flag into dst only when it was given on
// the command line. Unset flags leave the configured value alone.
func OverrideBool(fs *flag.FlagSet, name string, dst *bool) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name != name {
			return
		}

		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}

		if v, ok := getter.Get().(bool); ok {
			*dst = v
		}
	})
}
