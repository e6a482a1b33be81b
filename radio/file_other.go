//go:build !unix

package radio

import (
	"errors"
)

type FileDriver struct {
	Path string
}

func NewFileDriver(path string) *FileDriver {
	return &FileDriver{Path: path}
}

func (d *FileDriver) Name() string {
	return "file"
}

func (d *FileDriver) Open(index int) (Device, error) {
	return nil, errors.ErrUnsupported
}
