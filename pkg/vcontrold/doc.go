// Package vcontrold provides a client for the text protocol of vcontrold,
// the openv daemon that talks to Viessmann heating controls.
//
// # Basic Usage
//
//	ctx := context.Background()
//	cat := vcontrold.NewMemoryCatalog(vcontrold.Command{
//	    Name:    "getTempA",
//	    Unit:    "temperature",
//	    Groups:  []string{"temperature"},
//	    Devices: []int{2094},
//	    Status:  vcontrold.StatusEnabled,
//	})
//	client, err := vcontrold.NewClient(ctx, "192.168.1.20", cat)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	report, err := client.Run(ctx, vcontrold.BatchOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// The client can be configured using functional options:
//
//	client, err := vcontrold.NewClient(ctx, "192.168.1.20", cat,
//	    vcontrold.WithPort(3002),
//	    vcontrold.WithConnectTimeout(10*time.Second),
//	    vcontrold.WithFahrenheit(true),
//	    vcontrold.WithLogger(slog.Default()),
//	)
//
// # Protocol
//
// vcontrold prints the prompt "vctrld>" whenever it is ready, reads one
// command per line and answers with free text. After connecting, the client
// sends getDevType to learn the device ID; only catalog commands listed for
// that ID are executed. Replies containing "NOT OK" or "command unknown"
// disable the command in the catalog, "Wrong result, terminating" is
// reported as a temporary failure.
//
// Each command takes vcontrold a few seconds, so a full run over a large
// catalog can take minutes.
package vcontrold
