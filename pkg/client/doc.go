// Package client is the Go SDK for a powchain node's HTTP API.
//
// Reading the chain:
//
//	c, err := client.New("http://127.0.0.1:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	blocks, err := c.Chain(ctx)
//
// Submitting a transaction mines a block on the server before the call
// returns, so give the client a generous timeout on high difficulties:
//
//	c, _ := client.New(baseURL, client.WithTimeout(2*time.Minute))
//	block, err := c.SubmitTransaction(ctx, "Alice sends 5 BTC to Bob")
//
// Integrity of the remote chain:
//
//	report, err := c.Verify(ctx)
//	fmt.Println(report.Valid, report.PoWValid)
package client
