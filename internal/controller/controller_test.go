package controller_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/avdecc-fastconnect/internal/config"
	"github.com/micro-nova/avdecc-fastconnect/internal/controller"
	"github.com/micro-nova/avdecc-fastconnect/internal/events"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
	"github.com/micro-nova/avdecc-fastconnect/internal/savestate"
)

var (
	talker1     = models.MustParseEntityID("00:1B:C5:0A:00:00:00:01")
	controller1 = models.MustParseEntityID("00:1B:C5:0A:00:00:00:FF")
	talker2     = models.MustParseEntityID("00:1B:C5:0A:00:00:00:02")
)

func newTestController(t *testing.T, mutate func(*models.Settings)) (*controller.Controller, *events.Bus, string) {
	t.Helper()
	settings := models.DefaultSettings()
	settings.SaveStateFile = filepath.Join(t.TempDir(), "avdecc_save.ini")
	settings.RestoreRate = 1000
	if mutate != nil {
		mutate(&settings)
	}
	bus := events.NewBus()
	ctrl := controller.New(config.NewLive(settings), config.NewMemStore(), bus)
	return ctrl, bus, settings.SaveStateFile
}

func TestSaveConnection_PersistsAndPublishes(t *testing.T) {
	ctrl, bus, path := newTestController(t, nil)
	ch := bus.Subscribe("test")
	ctx := context.Background()

	if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: "Room1"}, talker1, controller1); err != nil {
		t.Fatalf("SaveConnection: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != models.EventSaved || ev.FriendlyName != "Room1" || len(ev.SavedStates) != 1 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no event published")
	}

	onDisk, err := savestate.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(onDisk) != 1 || onDisk[0].TalkerEntityID != talker1 {
		t.Errorf("file = %+v", onDisk)
	}
}

func TestSaveConnection_EmptyName(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	err := ctrl.SaveConnection(context.Background(), models.Listener{}, talker1, controller1)
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Status != 400 {
		t.Errorf("error = %v, want 400 AppError", err)
	}
}

func TestSaveConnection_Disabled(t *testing.T) {
	ctrl, bus, _ := newTestController(t, func(s *models.Settings) { s.FastConnectSupported = false })
	ch := bus.Subscribe("test")

	err := ctrl.SaveConnection(context.Background(), models.Listener{FriendlyName: "Room1"}, talker1, controller1)
	if !errors.Is(err, models.ErrFastConnectDisabled) {
		t.Fatalf("error = %v, want ErrFastConnectDisabled", err)
	}
	select {
	case ev := <-ch:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestSaveConnection_CancelledContext(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: "Room1"}, talker1, controller1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClearConnection(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	l := models.Listener{FriendlyName: "Room1"}

	if err := ctrl.SaveConnection(ctx, l, talker1, controller1); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.ClearConnection(ctx, l); err != nil {
		t.Fatalf("ClearConnection: %v", err)
	}
	if err := ctrl.ClearConnection(ctx, l); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second ClearConnection error = %v, want ErrNotFound", err)
	}
	all, err := ctrl.SavedStates()
	if err != nil || len(all) != 0 {
		t.Errorf("SavedStates = %v, %v; want empty", all, err)
	}
}

func TestSavedStateAndDelete(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: n}, talker1, controller1); err != nil {
			t.Fatal(err)
		}
	}

	st, err := ctrl.SavedState(1)
	if err != nil || st.FriendlyName != "B" {
		t.Errorf("SavedState(1) = %+v, %v", st, err)
	}
	if _, err := ctrl.SavedState(3); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SavedState(3) error = %v, want ErrNotFound", err)
	}

	if err := ctrl.DeleteSavedState(ctx, 0); err != nil {
		t.Fatalf("DeleteSavedState: %v", err)
	}
	st, _ = ctrl.SavedState(0)
	if st.FriendlyName != "B" {
		t.Errorf("after delete SavedState(0) = %q, want B", st.FriendlyName)
	}
}

func TestApplySettings_SwitchesSaveFile(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: "Room1"}, talker1, controller1); err != nil {
		t.Fatal(err)
	}

	next := ctrl.Settings()
	next.SaveStateFile = filepath.Join(t.TempDir(), "other.ini")
	ctrl.ApplySettings(next)

	all, err := ctrl.SavedStates()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("new save file should start empty, got %+v", all)
	}
}

func TestApplySettings_TogglesFastConnect(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()

	off := ctrl.Settings()
	off.FastConnectSupported = false
	if err := ctrl.UpdateSettings(ctx, off); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: "Room1"}, talker1, controller1); !errors.Is(err, models.ErrFastConnectDisabled) {
		t.Errorf("error = %v, want ErrFastConnectDisabled", err)
	}
	if ctrl.Info().FastConnectSupported {
		t.Error("Info().FastConnectSupported = true")
	}
}

func TestInfo(t *testing.T) {
	ctrl, _, path := newTestController(t, nil)
	ctrl.SetVersion("9.9.9")
	if err := ctrl.SaveConnection(context.Background(), models.Listener{FriendlyName: "Room1"}, talker1, controller1); err != nil {
		t.Fatal(err)
	}
	info := ctrl.Info()
	if info.Version != "9.9.9" || info.SavedStates != 1 || info.Capacity != savestate.MaxSavedStates || info.SaveStateFile != path {
		t.Errorf("Info = %+v", info)
	}
}

// --- Restore ---

type recordingConnector struct {
	mu    sync.Mutex
	calls []models.SavedState
	fail  map[string]bool
}

func (r *recordingConnector) Connect(_ context.Context, _ models.Listener, saved models.SavedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, saved)
	if r.fail[saved.FriendlyName] {
		return errors.New("talker unreachable")
	}
	return nil
}

func TestRestore_AllWhenNoListenersConfigured(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: n}, talker1, controller1); err != nil {
			t.Fatal(err)
		}
	}

	conn := &recordingConnector{}
	results, err := ctrl.Restore(ctx, conn)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(conn.calls) != 2 || conn.calls[0].FriendlyName != "A" || conn.calls[1].FriendlyName != "B" {
		t.Errorf("calls = %+v", conn.calls)
	}
	for _, r := range results {
		if r.Status != controller.RestoreConnected {
			t.Errorf("result = %+v", r)
		}
	}
}

func TestRestore_FiltersByConfiguredListeners(t *testing.T) {
	ctrl, _, _ := newTestController(t, func(s *models.Settings) {
		s.Listeners = []models.Listener{{FriendlyName: "A"}, {FriendlyName: "C"}}
	})
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: n}, talker1, controller1); err != nil {
			t.Fatal(err)
		}
	}

	conn := &recordingConnector{fail: map[string]bool{"C": true}}
	results, err := ctrl.Restore(ctx, conn)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	want := map[string]string{
		"A": controller.RestoreConnected,
		"B": controller.RestoreSkipped,
		"C": controller.RestoreFailed,
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.Status != want[r.Saved.FriendlyName] {
			t.Errorf("%s: status = %q, want %q", r.Saved.FriendlyName, r.Status, want[r.Saved.FriendlyName])
		}
	}
	if len(conn.calls) != 2 {
		t.Errorf("connector called %d times, want 2", len(conn.calls))
	}
}

func TestRestore_Disabled(t *testing.T) {
	ctrl, _, _ := newTestController(t, func(s *models.Settings) { s.FastConnectSupported = false })
	if _, err := ctrl.Restore(context.Background(), controller.LogConnector{}); !errors.Is(err, models.ErrFastConnectDisabled) {
		t.Errorf("error = %v, want ErrFastConnectDisabled", err)
	}
}

func TestRestore_ConnectorMayCallBack(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: "A"}, talker1, controller1); err != nil {
		t.Fatal(err)
	}

	// A reconnect that lands on a different talker saves the new association.
	conn := controller.ConnectorFunc(func(ctx context.Context, l models.Listener, _ models.SavedState) error {
		return ctrl.SaveConnection(ctx, l, talker2, controller1)
	})

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Restore(ctx, conn)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Restore deadlocked")
	}

	st, _ := ctrl.SavedState(0)
	if st.TalkerEntityID != talker2 {
		t.Errorf("talker = %v, want %v", st.TalkerEntityID, talker2)
	}
}

func TestRestore_PacedByRate(t *testing.T) {
	ctrl, _, _ := newTestController(t, func(s *models.Settings) {
		s.RestoreRate = 20
		s.RestoreBurst = 1
	})
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: n}, talker1, controller1); err != nil {
			t.Fatal(err)
		}
	}

	start := time.Now()
	if _, err := ctrl.Restore(ctx, controller.LogConnector{}); err != nil {
		t.Fatal(err)
	}
	// Burst of 1 at 20/s: the 2nd and 3rd attempts wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("Restore took %v, expected pacing of at least ~100ms", elapsed)
	}
}

func TestRestore_CancelledWhileWaiting(t *testing.T) {
	ctrl, _, _ := newTestController(t, func(s *models.Settings) {
		s.RestoreRate = 0.5
		s.RestoreBurst = 1
	})
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		if err := ctrl.SaveConnection(ctx, models.Listener{FriendlyName: n}, talker1, controller1); err != nil {
			t.Fatal(err)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	results, err := ctrl.Restore(cctx, controller.LogConnector{})
	if err == nil {
		t.Fatal("Restore returned nil error after cancellation")
	}
	if len(results) != 1 {
		t.Errorf("results = %+v, want only the first attempt", results)
	}
}
