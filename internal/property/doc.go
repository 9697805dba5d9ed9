// Package property holds the domain model shared by the mail organizer and
// the report pipeline.
//
// It covers three concerns:
//   - the mail-side model (Message, Attachment, MailKind) that adapters such as
//     the gmail package produce,
//   - the storage-side model (Folder, StoredFile) that the drive package
//     produces,
//   - identifier extraction: deriving a Key (station, property number, date)
//     from a message and rendering its folder name.
//
// Folder names follow the fixed contract
//
//	YYYYMMDD_<station>_<propertyNumber>
//
// where the date is the calendar date of processing in the configured zone
// (Asia/Tokyo by default) and missing fields are replaced by a placeholder.
//
// Example:
//
//	ex := property.NewExtractor(property.DefaultPlaceholder)
//	key := ex.Extract(msg, time.Now())
//	name := key.FolderName() // "20240601_渋谷_12345"
package property
