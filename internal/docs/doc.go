// Package docs creates Google Docs inside Drive folders.
//
// A document is created in two calls: the Drive API creates an empty Google
// Doc with the target folder as parent, then a single Docs batch update
// inserts the text and applies paragraph styles. Docs addresses text in
// UTF-16 code units starting at index 1, which BuildRequests accounts for.
//
// Example usage:
//
//	client, err := docs.NewClient(ctx, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc, err := client.CreateDocument(ctx, folderID, "物件評価レポート_12345_渋谷", []docs.Section{
//	    {Heading: "所在地", Lines: []string{"東京都渋谷区道玄坂1-2-3"}},
//	})
package docs
