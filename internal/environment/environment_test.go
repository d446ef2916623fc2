package environment_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/environment"
)

type recorder struct {
	mu      sync.Mutex
	signals []environment.Signal
}

func (r *recorder) handle(sig environment.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.signals))
	for _, sig := range r.signals {
		out = append(out, sig.ID)
	}
	return out
}

func TestSignal_Constructors(t *testing.T) {
	require.Equal(t, environment.SignalNone, environment.WithID("").Kind)
	require.Equal(t, environment.SignalID, environment.WithID("a").Kind)

	sig := environment.WithRecord(models.Record{ID: "r1", Fields: models.Fields{UserName: "Abe"}})
	require.Equal(t, "r1", sig.ID)
	require.NotNil(t, sig.Record)
	require.Equal(t, "Abe", sig.Record.UserName)

	require.Equal(t, environment.SignalNone, environment.WithRecord(models.Record{}).Kind)
	require.True(t, environment.WithID("r1").SameIdentity(sig))
	require.False(t, environment.WithID("r2").SameIdentity(sig))
}

func TestBrowser_CurrentSignal(t *testing.T) {
	b, err := environment.NewBrowser("/RecordForm?recordId=abc")
	require.NoError(t, err)
	require.Equal(t, environment.WithID("abc"), b.CurrentSignal())

	b, err = environment.NewBrowser("/RecordForm")
	require.NoError(t, err)
	require.Equal(t, environment.None(), b.CurrentSignal())
}

func TestBrowser_NavigateNotifiesOnIdentityChange(t *testing.T) {
	b, err := environment.NewBrowser("/RecordForm")
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe := b.OnSignalChange(rec.handle)

	require.NoError(t, b.Navigate("/RecordForm?recordId=a"))
	require.NoError(t, b.Navigate("/RecordForm?recordId=a&tab=notes"))
	require.NoError(t, b.Navigate("/RecordForm?recordId=b"))
	require.NoError(t, b.Navigate("/RecordForm"))
	require.Equal(t, []string{"a", "b", ""}, rec.ids())

	unsubscribe()
	unsubscribe()
	require.NoError(t, b.Navigate("/RecordForm?recordId=c"))
	require.Len(t, rec.ids(), 3)
}

func TestBrowser_ClearIdentityIsSilent(t *testing.T) {
	b, err := environment.NewBrowser("/RecordForm?recordId=gone&tab=main")
	require.NoError(t, err)

	rec := &recorder{}
	b.OnSignalChange(rec.handle)

	require.False(t, b.ClearIdentity("other", nil))
	require.Equal(t, "/RecordForm?recordId=gone&tab=main", b.Location())

	require.True(t, b.ClearIdentity("gone", nil))
	require.Equal(t, "/RecordForm?tab=main", b.Location())
	require.Equal(t, environment.None(), b.CurrentSignal())
	require.Empty(t, rec.ids())
}

func TestNative_SetParams(t *testing.T) {
	n := environment.NewNative(environment.Params{})
	require.Equal(t, environment.None(), n.CurrentSignal())

	rec := &recorder{}
	n.OnSignalChange(rec.handle)

	first := models.Record{ID: "r1", Fields: models.Fields{VehicleNumber: "V-1"}}
	n.SetParams(environment.Params{RecordToEdit: &first})

	edited := first
	edited.VehicleNumber = "V-1b"
	n.SetParams(environment.Params{RecordToEdit: &edited})

	n.SetParams(environment.Params{RecordToEdit: &models.Record{ID: "r2"}})
	n.SetParams(environment.Params{})

	require.Equal(t, []string{"r1", "r2", ""}, rec.ids())

	sig := n.CurrentSignal()
	require.Equal(t, environment.SignalNone, sig.Kind)
}

func TestNative_RecordWithoutIDIsNoIdentity(t *testing.T) {
	n := environment.NewNative(environment.Params{RecordToEdit: &models.Record{Fields: models.Fields{UserName: "x"}}})
	require.Equal(t, environment.None(), n.CurrentSignal())
}

func TestNative_ClearIdentityIsSilent(t *testing.T) {
	n := environment.NewNative(environment.Params{RecordToEdit: &models.Record{ID: "r1"}})
	rec := &recorder{}
	n.OnSignalChange(rec.handle)

	require.False(t, n.ClearIdentity("r2", nil))
	require.Equal(t, "r1", n.CurrentSignal().ID)

	require.False(t, n.ClearIdentity("r1", func() bool { return false }))
	require.Equal(t, "r1", n.CurrentSignal().ID)

	require.True(t, n.ClearIdentity("r1", func() bool { return true }))
	require.Equal(t, environment.None(), n.CurrentSignal())
	require.False(t, n.ClearIdentity("r1", nil))
	require.Empty(t, rec.ids())
}

func TestBrowser_WatchDeliversCurrentSignalFirst(t *testing.T) {
	b, err := environment.NewBrowser("/RecordForm?recordId=a")
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe := b.Watch(rec.handle)
	defer unsubscribe()

	require.NoError(t, b.Navigate("/RecordForm?recordId=b"))
	require.Equal(t, []string{"a", "b"}, rec.ids())
}

func TestNative_WatchDeliversCurrentSignalFirst(t *testing.T) {
	n := environment.NewNative(environment.Params{})

	rec := &recorder{}
	unsubscribe := n.Watch(rec.handle)
	n.SetParams(environment.Params{RecordToEdit: &models.Record{ID: "r1"}})
	unsubscribe()
	n.SetParams(environment.Params{})

	require.Equal(t, []string{"", "r1"}, rec.ids())
}
