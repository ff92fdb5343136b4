package stdx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMust1(t *testing.T) {
	t.Run("no error", func(t *testing.T) {
		assert.Equal(t, "renderer", Must1("renderer", nil))
	})

	t.Run("with error", func(t *testing.T) {
		errStartup := errors.New("no terminal")
		assert.PanicsWithError(t, errStartup.Error(), func() {
			Must1(0, errStartup)
		})
	})
}
