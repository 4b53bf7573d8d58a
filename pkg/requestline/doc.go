// Package requestline provides a client for the requestline HTTP API.
//
// The client wraps every endpoint of the serve daemon: submitting song
// requests, reading the queue and the current track, checking cooldowns,
// searching the catalog, the admin controls, and the websocket event stream.
//
// Example usage:
//
//	import "github.com/jfmyers9/requestline/pkg/requestline"
//
//	client, err := requestline.NewClient(requestline.Config{
//	    BaseURL: "http://localhost:8080",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sub, err := client.Submit(ctx, requestline.SubmitRequest{
//	    TrackID: "4uLU6hMCjMI75M1A2tKUQC",
//	    Message: "for the kitchen",
//	})
//	if errors.Is(err, requestline.ErrCooldownActive) {
//	    fmt.Println("slow down")
//	}
//
// Admin endpoints require Config.AdminToken.
package requestline
