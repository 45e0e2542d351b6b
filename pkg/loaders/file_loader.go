package loaders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// FileLoader reads .env or .json files. Missing files are skipped.
type FileLoader struct {
	fileNames []string
}

func NewFileLoader(fileNames ...string) *FileLoader {
	return &FileLoader{
		fileNames: fileNames,
	}
}

func (f *FileLoader) Load(dest any) error {
	for _, file := range f.fileNames {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		var err error
		switch {
		case strings.HasSuffix(file, ".json"):
			err = f.loadJSON(dest, file)

		default:
			err = f.loadDotEnv(dest, file)
		}
		if err != nil {
			return fmt.Errorf("could not load file: %s: %w", file, err)
		}
	}
	return nil
}

func (f *FileLoader) loadDotEnv(dest any, file string) error {
	cfg, err := godotenv.Read(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %s: %s", file, err.Error())
	}

	return loadTagged(dest, "env", func(key string) (string, bool) {
		val, ok := cfg[key]
		return val, ok
	})
}

func (f *FileLoader) loadJSON(dest any, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %s: %s", file, err.Error())
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse config file: %s", err.Error())
	}

	return nil
}
