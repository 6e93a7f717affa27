package projection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rolling-paper/domain"
)

func Test_Transcripts_Oldest_First_Per_Group(t *testing.T) {
	req := require.New(t)

	messages := []domain.Message{
		{ID: "m3", Author: "Clara", Group: "FDM", Content: "bye", Timestamp: 3000},
		{ID: "m1", Author: "Alice", Group: "ESD", Content: "hello", Timestamp: 1000},
		{ID: "m2", Author: "Bob", Group: "ESD", Content: "take care", Timestamp: 2000},
	}

	transcripts := Transcripts(messages)
	req.Len(transcripts, 2)
	req.Equal("Alice : hello\nBob : take care\n", transcripts["ESD"])
	req.Equal("Clara : bye\n", transcripts["FDM"])
}

func Test_Transcripts_Reflect_Deletion(t *testing.T) {
	req := require.New(t)

	messages := []domain.Message{
		{ID: "m1", Author: "Alice", Group: "FDM", Content: "first", Timestamp: 1000},
		{ID: "m2", Author: "Bob", Group: "FDM", Content: "second", Timestamp: 2000},
	}
	// Simulate the deletion of m2: the projection only sees survivors.
	survivors := messages[:1]

	transcripts := Transcripts(survivors)
	req.Equal("Alice : first\n", transcripts["FDM"])
}

func Test_Transcripts_Include_Private_Content(t *testing.T) {
	req := require.New(t)

	messages := []domain.Message{
		{ID: "m1", Author: "Alice", Group: "ESD", Content: "secret note", Timestamp: 1000, IsPrivate: true, PasswordHash: "$argon2id$..."},
	}

	transcripts := Transcripts(messages)
	req.Equal("Alice : secret note\n", transcripts["ESD"])
}

func Test_Transcripts_Empty_Input(t *testing.T) {
	require.Empty(t, Transcripts(nil))
}
