package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "shop:cart:user-1", Key("user-1"))
}

func TestField(t *testing.T) {
	assert.Equal(t, "prod-1:var-1", field("prod-1", "var-1"))
}
