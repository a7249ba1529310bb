package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserNickname(t *testing.T) {
	req := require.New(t)

	name, err := UserNickname()
	req.NoError(err)
	req.True(strings.HasPrefix(name, "User_"))
	req.Len(name, len("User_")+6)
	for _, c := range strings.TrimPrefix(name, "User_") {
		req.Contains(Base62Chars, string(c))
	}
}

func TestIDs(t *testing.T) {
	req := require.New(t)
	req.NotEqual(ID(), ID())
	req.True(strings.HasPrefix(ConnID(), "c_"))
}
