package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/TehPeGaSuS/MultiRPG/internal/store"
)

type StorageConfig struct {
	Path string `json:"path"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage: path is required"))
	}

	return el.Err()
}

func (c *StorageConfig) BuildStore() (*store.Store, error) {
	s, err := store.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", c.Path, err)
	}
	return s, nil
}
