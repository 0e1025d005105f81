package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"":                                 "",
		"postgres://u:secret@db:5432/docs": "postgres://u:xxxxx@db:5432/docs",
		"postgres://u@db/docs?sslmode=off": "postgres://u@db/docs?sslmode=off",
		"host=db user=u password=secret":   "host=db user=u password=***",
		"nats://token@nats:4222":           "nats://token@nats:4222",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskDSN(in), in)
	}
}
