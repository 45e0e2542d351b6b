package loaders

import "fmt"

type Loader interface {
	Load(dest any) error
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(dest any) error

func (f LoaderFunc) Load(dest any) error {
	return f(dest)
}

// ChainLoader runs its loaders in order, so a later source overrides an earlier one.
type ChainLoader struct {
	loaders []Loader
}

func NewChainLoader(loaders ...Loader) *ChainLoader {
	return &ChainLoader{loaders: loaders}
}

func (c *ChainLoader) Load(dest any) error {
	for _, loader := range c.loaders {
		if loader == nil {
			continue
		}
		if err := loader.Load(dest); err != nil {
			return fmt.Errorf("unable to load config from %T: %w", loader, err)
		}
	}

	return nil
}
