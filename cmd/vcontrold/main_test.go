package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zberg/go-vcontrold/pkg/output"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

const testCatalog = `vcontrold_commands:
  get:
    getTempA:
      description: Aussentemperatur
      status: enabled
      unit: 'temperature'
      groups: ['temperature']
      devices: [2094]
    getPumpe:
      description: Pumpe
      status: enabled
      unit: 'switch'
      groups: ['pumps']
      devices: [2094]
    getGone:
      description: Nicht vorhanden
      status: enabled
      unit: 'number'
      groups: ['temperature']
      devices: [2094]
  set:
    setTempWWsoll:
      description: Warmwassersolltemperatur
`

var testReplies = map[string]string{
	vcontrold.IdentifyCommand: "V200KW2 ID=2094 Protokoll:KW",
	"getTempA":                "8.25 Grad Celsius",
	"getPumpe":                "1",
}

// testDaemon serves the vcontrold prompt protocol on a loopback port.
// With a gate, replies to catalog commands wait until the gate is closed.
type testDaemon struct {
	port   int
	gate   <-chan struct{}
	active atomic.Int32
	peak   atomic.Int32
}

func startDaemon(t *testing.T) int {
	t.Helper()
	return startGatedDaemon(t, nil).port
}

func startGatedDaemon(t *testing.T, gate <-chan struct{}) *testDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	d := &testDaemon{port: ln.Addr().(*net.TCPAddr).Port, gate: gate}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go d.handle(conn)
		}
	}()
	return d
}

func (d *testDaemon) handle(conn net.Conn) {
	defer conn.Close()
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	conn.Write([]byte(vcontrold.Prompt))
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		if d.gate != nil && cmd != vcontrold.IdentifyCommand {
			<-d.gate
		}
		reply, ok := testReplies[cmd]
		if !ok {
			reply = "ERR: command unknown"
		}
		if _, err := conn.Write([]byte(reply + "\n" + vcontrold.Prompt)); err != nil {
			return
		}
	}
}

// closedPort returns a loopback port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// useSettings points cfg at a daemon and a fresh catalog file for one test.
func useSettings(t *testing.T, port int, format output.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vcontrold_commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	old := cfg
	t.Cleanup(func() { cfg = old })
	cfg = settings{
		Host:           "127.0.0.1",
		Port:           port,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		CatalogPath:    path,
		SwitchAsBool:   true,
		ExcludeTimers:  true,
		Format:         format,
		Output:         output.DefaultOptions(),
		Logger:         slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	return path
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
