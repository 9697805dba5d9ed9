// Package property_tools registers the MCP tools of the organizer:
//
//   - organize_property_mail runs one organizer pass and returns the summary
//   - property_folder_name previews the folder a message would be filed under
//   - simulate_investment runs the investment simulation for a price and rent
//
// organize_property_mail changes mailbox labels and Drive contents, so it is
// refused in read-only mode.
package property_tools
