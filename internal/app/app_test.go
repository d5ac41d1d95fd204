package app

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mocksvc "github.com/aerotrack/flight-registry-server/internal/service/mocks"
	"github.com/aerotrack/flight-registry-server/internal/sync/coordinator"
)

// mockCoordinator implements the coordinator.Coordinator interface for testing
type mockCoordinator struct {
	mu          sync.Mutex
	startCalled bool
	stopCalled  bool
	startErr    error
	stopErr     error
	startDelay  time.Duration
}

var _ coordinator.Coordinator = (*mockCoordinator)(nil)

func (m *mockCoordinator) Start(ctx context.Context) error {
	m.mu.Lock()
	m.startCalled = true
	delay := m.startDelay
	err := m.startErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func (m *mockCoordinator) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return m.stopErr
}

func (m *mockCoordinator) wasStartCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalled
}

func (m *mockCoordinator) wasStopCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalled
}

// createTestApp creates a FlightRegistryApp with mocked components for testing
// This directly constructs the FlightRegistryApp without using NewFlightRegistryApp
func createTestApp(t *testing.T, ctrl *gomock.Controller, addr string) *FlightRegistryApp {
	t.Helper()

	mockSvc := mocksvc.NewMockFlightService(ctrl)
	mockSvc.EXPECT().CheckReadiness(gomock.Any()).Return(nil).AnyTimes()
	mockCoord := &mockCoordinator{}

	cfg := createValidTestConfig()

	ctx := context.Background()
	appCtx, cancel := context.WithCancel(ctx)

	// Build the HTTP server with test configuration
	appCfg := &flightRegistryAppConfig{
		config:         cfg,
		address:        addr,
		requestTimeout: 10 * time.Second,
		readTimeout:    10 * time.Second,
		writeTimeout:   15 * time.Second,
		idleTimeout:    60 * time.Second,
	}

	server, err := buildHTTPServer(ctx, appCfg, mockSvc)
	require.NoError(t, err)

	return &FlightRegistryApp{
		config: cfg,
		components: &AppComponents{
			RefreshCoordinator: mockCoord,
			FlightService:      mockSvc,
		},
		httpServer: server,
		ctx:        appCtx,
		cancelFunc: cancel,
	}
}

func TestFlightRegistryApp_Start(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setupApp   func(*testing.T, *gomock.Controller) *FlightRegistryApp
		wantErr    bool
		errContain string
	}{
		{
			name: "successful start with ephemeral port",
			setupApp: func(t *testing.T, ctrl *gomock.Controller) *FlightRegistryApp {
				t.Helper()
				return createTestApp(t, ctrl, ":0")
			},
			wantErr: false,
		},
		{
			name: "successful start on localhost",
			setupApp: func(t *testing.T, ctrl *gomock.Controller) *FlightRegistryApp {
				t.Helper()
				return createTestApp(t, ctrl, "127.0.0.1:0")
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			app := tt.setupApp(t, ctrl)

			// Start server in goroutine
			errChan := make(chan error, 1)
			go func() {
				errChan <- app.Start()
			}()

			// Wait for server to start
			time.Sleep(100 * time.Millisecond)

			// Verify server is listening
			if !tt.wantErr {
				// Get the actual address the server is listening on
				addr := app.httpServer.Addr
				if addr == ":0" || addr == "127.0.0.1:0" {
					// For ephemeral ports, we need to check differently
					// The server should be running
					mockCoord := app.components.RefreshCoordinator.(*mockCoordinator)
					assert.True(t, mockCoord.wasStartCalled(), "refresh coordinator should be started")
				}
			}

			// Stop the server
			err := app.Stop(5 * time.Second)
			require.NoError(t, err)

			// Check Start() result
			select {
			case startErr := <-errChan:
				if tt.wantErr {
					require.Error(t, startErr)
					if tt.errContain != "" {
						assert.Contains(t, startErr.Error(), tt.errContain)
					}
				} else {
					require.NoError(t, startErr)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Start() did not return after Stop()")
			}
		})
	}
}

func TestFlightRegistryApp_StartWithListener(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	// Create a listener to get an actual port
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	actualAddr := listener.Addr().String()
	listener.Close()

	// Update the server address to use the now-free port
	app.httpServer.Addr = actualAddr

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	// Make a health check request
	resp, err := http.Get("http://" + actualAddr + "/health")
	if err == nil {
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Verify refresh coordinator was started
	mockCoord := app.components.RefreshCoordinator.(*mockCoordinator)
	assert.True(t, mockCoord.wasStartCalled(), "refresh coordinator should be started")

	// Stop the server
	err = app.Stop(5 * time.Second)
	require.NoError(t, err)

	// Wait for Start() to return
	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestFlightRegistryApp_Stop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		timeout  time.Duration
		setupApp func(*testing.T, *gomock.Controller) *FlightRegistryApp
		wantErr  bool
		verifyFn func(*testing.T, *FlightRegistryApp)
	}{
		{
			name:    "graceful shutdown with normal timeout",
			timeout: 5 * time.Second,
			setupApp: func(t *testing.T, ctrl *gomock.Controller) *FlightRegistryApp {
				t.Helper()
				return createTestApp(t, ctrl, ":0")
			},
			wantErr: false,
			verifyFn: func(t *testing.T, app *FlightRegistryApp) {
				t.Helper()
				mockCoord := app.components.RefreshCoordinator.(*mockCoordinator)
				assert.True(t, mockCoord.wasStopCalled(), "refresh coordinator Stop should be called")
			},
		},
		{
			name:    "graceful shutdown with short timeout",
			timeout: 1 * time.Second,
			setupApp: func(t *testing.T, ctrl *gomock.Controller) *FlightRegistryApp {
				t.Helper()
				return createTestApp(t, ctrl, ":0")
			},
			wantErr: false,
			verifyFn: func(t *testing.T, app *FlightRegistryApp) {
				t.Helper()
				mockCoord := app.components.RefreshCoordinator.(*mockCoordinator)
				assert.True(t, mockCoord.wasStopCalled(), "refresh coordinator Stop should be called")
			},
		},
		{
			name:    "stop without starting first",
			timeout: 5 * time.Second,
			setupApp: func(t *testing.T, ctrl *gomock.Controller) *FlightRegistryApp {
				t.Helper()
				return createTestApp(t, ctrl, ":0")
			},
			wantErr: false,
			verifyFn: func(t *testing.T, app *FlightRegistryApp) {
				t.Helper()
				mockCoord := app.components.RefreshCoordinator.(*mockCoordinator)
				assert.True(t, mockCoord.wasStopCalled(), "refresh coordinator Stop should be called even without Start")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			app := tt.setupApp(t, ctrl)

			// For tests that need the server running first
			if tt.name != "stop without starting first" {
				errChan := make(chan error, 1)
				go func() {
					errChan <- app.Start()
				}()

				// Wait for server to start
				time.Sleep(100 * time.Millisecond)
			}

			// Call Stop
			err := app.Stop(tt.timeout)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tt.verifyFn != nil {
				tt.verifyFn(t, app)
			}
		})
	}
}

func TestFlightRegistryApp_StopIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	// First stop should succeed
	err1 := app.Stop(5 * time.Second)
	require.NoError(t, err1)

	// Wait for Start() to return
	select {
	case <-errChan:
		// Expected
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after first Stop()")
	}

	// Second stop should also succeed (idempotent)
	err2 := app.Stop(5 * time.Second)
	// Note: This may return an error if the server is already closed,
	// but it should not panic
	_ = err2
}

func TestFlightRegistryApp_StopWithNilCancelFunc(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	// Set cancelFunc to nil to test nil safety
	app.cancelFunc = nil

	// Stop should handle nil cancelFunc gracefully
	err := app.Stop(5 * time.Second)
	// The server wasn't started, so shutdown should be quick
	require.NoError(t, err)
}

func TestFlightRegistryApp_GetConfig(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	cfg := app.GetConfig()

	require.NotNil(t, cfg)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "Primary", cfg.Providers[0].Name)
}

func TestFlightRegistryApp_WithoutRefreshCoordinator(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, "127.0.0.1:0")
	app.components.RefreshCoordinator = nil

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
