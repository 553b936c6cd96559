package module

import (
	"testing"

	phttp "msgstats/internal/platform/net/http"

	"github.com/stretchr/testify/require"
)

type jobReader interface{ JobCount() int }

type counter struct{ n int }

func (c counter) JobCount() int { return c.n }

type portSet struct {
	Jobs  jobReader
	label string
}

type stub struct{ ports any }

func (stub) MountRoutes(phttp.Router) {}
func (s stub) Ports() any             { return s.ports }
func (stub) Name() string             { return "stub" }

func TestPortsOf(t *testing.T) {
	direct := stub{ports: counter{n: 2}}
	got, ok := PortsOf[jobReader](direct)
	require.True(t, ok)
	require.Equal(t, 2, got.JobCount())

	nested := stub{ports: portSet{Jobs: counter{n: 5}, label: "x"}}
	require.Equal(t, 5, MustPortsOf[jobReader](nested).JobCount())

	_, ok = PortsOf[jobReader](stub{})
	require.False(t, ok)
	require.Panics(t, func() { MustPortsOf[jobReader](stub{ports: 7}) })
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("collect", counter{n: 9})
	got, ok := PortsAs[jobReader]("collect")
	require.True(t, ok)
	require.Equal(t, 9, got.JobCount())

	_, ok = PortsAs[jobReader]("missing")
	require.False(t, ok)
	_, ok = PortsAs[string]("collect")
	require.False(t, ok)
}
