// Package transcriptserver exposes the transcript service as MCP tools.
package transcriptserver

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 6

// Calls slower than this are logged.
const slowToolThreshold = 20 * time.Second

// RegisterTools registers the transcript tools on server:
// get_transcript, search_transcript, batch_transcripts, transcript_summary,
// collection_video_urls, collection_transcripts.
func RegisterTools(server *mcp.Server, svc *transcript.Service) {
	registerGetTranscript(server, svc)
	registerSearchTranscript(server, svc)
	registerBatchTranscripts(server, svc)
	registerTranscriptSummary(server, svc)
	registerCollectionVideoURLs(server, svc)
	registerCollectionTranscripts(server, svc)
}

var readOnly = &mcp.ToolAnnotations{ReadOnlyHint: true}
