package transcriptserver

import (
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers the transcript tools on the given MCP server: youtube_transcript.
func RegisterTools(server *mcp.Server, src toolutil.TranscriptSource) {
	registerYouTubeTranscript(server, src)
}
