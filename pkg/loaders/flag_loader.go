package loaders

import (
	"github.com/spf13/pflag"
)

// FlagLoader applies the flags of a FlagSet named by `flag` tags. Only flags
// set on the command line are applied, so defaults never override values
// loaded earlier in a chain.
type FlagLoader struct {
	flags *pflag.FlagSet
}

func NewFlagLoader(flags *pflag.FlagSet) *FlagLoader {
	return &FlagLoader{
		flags: flags,
	}
}

func (f *FlagLoader) Load(dest any) error {
	return loadTagged(dest, "flag", func(key string) (string, bool) {
		if f.flags == nil || !f.flags.Changed(key) {
			return "", false
		}
		return f.flags.Lookup(key).Value.String(), true
	})
}
