// Package gmail wraps the Gmail API for the mail side of the organizer.
//
// It covers exactly what the organizer needs from a mailbox:
//   - searching messages with Gmail query syntax (paginated)
//   - fetching a message with its MIME tree and decoding the text body
//   - listing and downloading attachments
//   - creating the processed label and applying it to a message
//
// Source adapts the client to the organizer's mail source contract and maps
// Gmail messages onto property.Message values.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	err = client.ForeachMessage(ctx, gmail.BuildQuery("販売図面", 2*time.Hour, "processed"),
//	    func(m *gmailapi.Message) error {
//	        fmt.Println(m.Id)
//	        return nil
//	    })
package gmail
