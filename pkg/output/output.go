package output

import "github.com/starforgelabs/datanorm/pkg/normalizer"

type Output interface {
	Publish([]normalizer.Reading) error
	Close() error
}

// helper constructors are in subpackages
