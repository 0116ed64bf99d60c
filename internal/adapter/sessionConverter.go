package adapter

import (
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
)

func ToSessionResponse(session sessionModel.Session) api.SessionResponse {
	res := api.SessionResponse{
		SessionId: session.Id,
		State:     string(session.State()),
		Documents: []string{},
		History:   make([]api.TurnResponse, 0, len(session.History)),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if session.Chain != nil {
		res.Documents = append(res.Documents, session.Chain.Documents...)
		res.ChunkCount = session.Chain.ChunkCount
	}
	for _, turn := range session.History {
		res.History = append(res.History, api.TurnResponse{Role: string(turn.Role), Content: turn.Content})
	}
	return res
}
