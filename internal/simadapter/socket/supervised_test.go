// SPDX-License-Identifier: BSD-3-Clause

package socket

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/batsim-go/rjms/internal/controller"
	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/eventbus/transport"
	"github.com/batsim-go/rjms/internal/simadapter"
	"github.com/batsim-go/rjms/internal/supervisor"
)

// fakeSimulator plays the other end of the pipe socket.Adapter talks over:
// it answers START with SIMULATION_BEGINS and every PROCEED_SIMULATION with
// SIMULATION_ENDS, enough to drive one full controller lifecycle.
func fakeSimulator(t *testing.T, conn net.Conn) {
	t.Helper()
	for {
		f, err := readFrame(conn)
		if err != nil {
			return
		}
		switch f.Type {
		case "START":
			payload, _ := json.Marshal(simadapter.PlatformSpecPayload{
				Spec: simadapter.PlatformSpec{Hosts: []simadapter.HostSpec{
					{ID: 0, Name: "node-0", ResourceIDs: []int{0}, PStates: []simadapter.PStateSpec{
						{ID: 0, Type: "computation", Watts: 200, IsDefault: true},
					}},
				}},
			})
			_ = writeFrame(conn, frame{Type: string(simadapter.EventSimulationBegins), Payload: payload})
			_ = writeFrame(conn, frame{Type: endOfBatch})
		case "PROCEED_SIMULATION":
			_ = writeFrame(conn, frame{Type: string(simadapter.EventSimulationEnds)})
			_ = writeFrame(conn, frame{Type: endOfBatch})
		default:
			// KILL_JOBS, EXECUTE_JOB, etc. are not exercised by this test.
		}
	}
}

// TestSupervisedDriveLoopAndSocketReader runs the event bus transport in its
// own goroutine and wires the socket adapter's connection-reader goroutine
// and the controller's ProceedTime drive loop into a single
// supervisor.Supervisor, exercising the
// oversight/nursery supervision path end to end instead of leaving it an
// unreachable package.
func TestSupervisedDriveLoopAndSocketReader(t *testing.T) {
	simConn, appConn := net.Pipe()
	defer simConn.Close()
	defer appConn.Close()

	tr := transport.New(transport.WithListen(false))
	trCtx, trCancel := context.WithCancel(context.Background())
	defer trCancel()
	trDone := make(chan error, 1)
	go func() { trDone <- tr.Run(trCtx) }()

	bus, err := eventbus.Connect(tr.GetConnProvider(), nil)
	if err != nil {
		t.Fatalf("eventbus.Connect: %v", err)
	}
	defer bus.Close()

	adapter := New(appConn)
	c, err := controller.New(adapter, bus)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	sup := supervisor.New(supervisor.WithTimeout(time.Second))
	sup.Add(adapter)
	sup.Add(c.AsComponent())

	ctx, cancel := context.WithCancel(context.Background())
	supDone := make(chan error, 1)
	go func() { supDone <- sup.Run(ctx) }()

	go fakeSimulator(t, simConn)

	// Give the supervisor a moment to start the socket reader before
	// Start sends the first frame.
	time.Sleep(20 * time.Millisecond)

	if err := c.Start(context.Background(), simadapter.PlatformSpec{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.IsRunning() {
		t.Fatalf("expected SIMULATION_ENDS delivered via the supervised drive loop to stop the controller")
	}

	cancel()
	select {
	case <-supDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("supervisor did not shut down after context cancellation")
	}
}
