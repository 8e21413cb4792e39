package ui

import (
	"cortexchat/model"
	"cortexchat/provider"
)

// Message type aliases - these are defined in the model package
type turnCompleteMsg = model.TurnCompleteMsg
type reportMsg = model.ReportMsg
type provisionedMsg = model.ProvisionedMsg
type markdownRenderedMsg = model.MarkdownRenderedMsg
type sessionsListMsg = model.SessionsListMsg
type sessionLoadedMsg = model.SessionLoadedMsg
type sessionSavedMsg = model.SessionSavedMsg
type sessionRenamedMsg = model.SessionRenamedMsg
type sessionDeletedMsg = model.SessionDeletedMsg
type sessionExportedMsg = model.SessionExportedMsg
type sessionImportedMsg = model.SessionImportedMsg
type exportCleanupDoneMsg = model.ExportCleanupDoneMsg
type searchResultsMsg = model.SearchResultsMsg
type preferenceSavedMsg = model.PreferenceSavedMsg
type clipboardMsg = model.ClipboardMsg
type flashTickMsg = model.FlashTickMsg
type pingProviderMsg = provider.PingProviderMsg
