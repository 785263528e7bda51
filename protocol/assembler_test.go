package protocol

import (
	stderrors "errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijmichel/httpexperiments/errors"
)

const fullResponse = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 26\r\n" +
	"\r\n" +
	"abcdefghijklmnopqrstuvwxyz"

func assemble(t *testing.T, chunks ...string) (*HttpResponse, error) {
	t.Helper()
	asm := NewAssembler(0)
	for _, c := range chunks {
		if err := asm.Consume([]byte(c)); err != nil {
			return nil, err
		}
	}
	return asm.Finalize()
}

func TestAssembler_SingleChunk(t *testing.T) {
	resp, err := assemble(t, fullResponse)
	require.NoError(t, err)

	assert.Equal(t, "HTTP/1.1 200 OK", resp.StatusLine)
	assert.Equal(t, "HTTP/1.1", resp.Proto)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.StatusMessage)
	assert.Equal(t, int64(26), resp.ContentLength)
	assert.Equal(t, strings.Index(fullResponse, "\r\n\r\n")+4, resp.HeaderBytes)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", string(resp.Body))
	assert.False(t, resp.Overrun)

	ct, ok := resp.Header("content-type")
	require.True(t, ok)
	assert.Equal(t, "text/plain", ct)
}

func TestAssembler_EverySplitPoint(t *testing.T) {
	want, err := assemble(t, fullResponse)
	require.NoError(t, err)

	for i := 0; i <= len(fullResponse); i++ {
		got, err := assemble(t, fullResponse[:i], fullResponse[i:])
		require.NoError(t, err, "split at %d", i)
		assert.Equal(t, want, got, "split at %d", i)
	}
}

func TestAssembler_SplitInsideTerminator(t *testing.T) {
	term := strings.Index(fullResponse, "\r\n\r\n")

	for offset := 1; offset < 4; offset++ {
		split := term + offset
		asm := NewAssembler(0)

		require.NoError(t, asm.Consume([]byte(fullResponse[:split])))
		assert.False(t, asm.HeaderComplete(), "terminator cut after %d bytes", offset)
		assert.Zero(t, asm.BodyLen())

		require.NoError(t, asm.Consume([]byte(fullResponse[split:])))
		assert.True(t, asm.HeaderComplete())

		resp, err := asm.Finalize()
		require.NoError(t, err)
		assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", string(resp.Body))
	}
}

func TestAssembler_OneBytePerChunk(t *testing.T) {
	chunks := make([]string, 0, len(fullResponse))
	for i := range fullResponse {
		chunks = append(chunks, fullResponse[i:i+1])
	}

	resp, err := assemble(t, chunks...)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(26), resp.ContentLength)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", string(resp.Body))
}

func TestAssembler_RandomPartitions(t *testing.T) {
	want, err := assemble(t, fullResponse)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		var chunks []string
		rest := fullResponse
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			if n > 7 {
				n = 1 + rng.Intn(7)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		got, err := assemble(t, chunks...)
		require.NoError(t, err, "chunks %q", chunks)
		assert.Equal(t, want, got, "chunks %q", chunks)
	}
}

func TestAssembler_TerminatorLookalikeAcrossChunks(t *testing.T) {
	// A lone CRLF at a chunk boundary must not be combined with an earlier
	// CRLF that is no longer adjacent.
	resp, err := assemble(t,
		"HTTP/1.1 200 OK\r\n",
		"X-A: 1\r\n",
		"X-B: 2\r",
		"\n\r",
		"\nbody")
	require.NoError(t, err)

	assert.Len(t, resp.Headers, 2)
	assert.Equal(t, "body", string(resp.Body))
}

func TestAssembler_BodyMayContainTerminator(t *testing.T) {
	resp, err := assemble(t, "HTTP/1.1 200 OK\r\n\r\n", "line1\r\n\r\nline2")
	require.NoError(t, err)
	assert.Equal(t, "line1\r\n\r\nline2", string(resp.Body))
}

func TestAssembler_ChunkIsCopied(t *testing.T) {
	asm := NewAssembler(0)
	buf := []byte("HTTP/1.1 200 OK\r\n\r\nHel")
	require.NoError(t, asm.Consume(buf))

	copy(buf, "XXXXXXXXXXXXXXXXXXXXXXX")
	require.NoError(t, asm.Consume([]byte("lo")))

	resp, err := asm.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(resp.Body))
	assert.Equal(t, "HTTP/1.1 200 OK", resp.StatusLine)
}

func TestAssembler_HelloScenario(t *testing.T) {
	asm := NewAssembler(0)

	require.NoError(t, asm.Consume([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nHel")))
	assert.True(t, asm.HeaderComplete())
	assert.False(t, asm.Complete())

	require.NoError(t, asm.Consume([]byte("lo")))
	assert.True(t, asm.Complete())

	resp, err := asm.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(resp.Body))
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, resp.Overrun)
}

func TestAssembler_NotFoundIsNotAnError(t *testing.T) {
	resp, err := assemble(t, "HTTP/1.1 404 Not Found\r\n\r\n")
	require.NoError(t, err)

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Not Found", resp.StatusMessage)
	assert.Empty(t, resp.Body)
	assert.False(t, resp.HasContentLength())
}

func TestAssembler_StatusCodes(t *testing.T) {
	tests := []struct {
		line    string
		code    int
		message string
	}{
		{"HTTP/1.1 200 OK", 200, "OK"},
		{"HTTP/1.0 404 Not Found", 404, "Not Found"},
		{"HTTP/1.1 500 Internal  Server Error", 500, "Internal  Server Error"},
		{"HTTP/1.1 204", 204, ""},
		{"HTTP/1.1   301   Moved", 301, "Moved"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			resp, err := assemble(t, tt.line+"\r\n\r\n")
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, tt.message, resp.StatusMessage)
			assert.Equal(t, tt.line, resp.StatusLine)
		})
	}
}

func TestAssembler_MalformedStatusLine(t *testing.T) {
	tests := []string{
		"HTTP/1.1\r\n\r\n",
		"\r\n\r\n",
		"HTTP/1.1 OK 200\r\n\r\n",
		"HTTP/1.1 -200 OK\r\n\r\n",
		"garbage\r\nContent-Length: 3\r\n\r\nabc",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := assemble(t, raw)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrMalformedStatusLine), "got %v", err)
		})
	}
}

func TestAssembler_ErrorIsSticky(t *testing.T) {
	asm := NewAssembler(0)
	err := asm.Consume([]byte("HTTP/1.1 abc\r\n\r\nbody"))
	require.Error(t, err)

	assert.Equal(t, err, asm.Consume([]byte("more")))
	assert.Zero(t, asm.BodyLen())

	_, ferr := asm.Finalize()
	assert.Equal(t, err, ferr)
}

func TestAssembler_ContentLength(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int64
	}{
		{"plain", "Content-Length: 42\r\n", 42},
		{"lower case", "content-length: 42\r\n", 42},
		{"mixed case no space", "CONTENT-length:7\r\n", 7},
		{"trailing spaces", "Content-Length: 9   \r\n", 9},
		{"absent", "Content-Type: text/html\r\n", -1},
		{"not a number", "Content-Length: lots\r\n", -1},
		{"negative", "Content-Length: -5\r\n", -1},
		{"first wins", "Content-Length: 1\r\nContent-Length: 2\r\n", 1},
		{"prefix name is not the header", "Content-Length-Extra: 3\r\n", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := assemble(t, "HTTP/1.1 200 OK\r\n"+tt.header+"\r\n")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.ContentLength)
		})
	}
}

func TestAssembler_Overrun(t *testing.T) {
	resp, err := assemble(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nab", "cd")
	require.NoError(t, err)

	assert.True(t, resp.Overrun)
	assert.Equal(t, "abcd", string(resp.Body))
}

func TestAssembler_NoContentLengthReadsToEnd(t *testing.T) {
	asm := NewAssembler(0)
	require.NoError(t, asm.Consume([]byte("HTTP/1.0 200 OK\r\n\r\nfirst ")))
	require.NoError(t, asm.Consume([]byte("second")))
	assert.False(t, asm.Complete())

	resp, err := asm.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "first second", string(resp.Body))
	assert.False(t, resp.Overrun)
}

func TestAssembler_TruncatedHeader(t *testing.T) {
	t.Run("no chunks", func(t *testing.T) {
		_, err := NewAssembler(0).Finalize()
		assert.True(t, stderrors.Is(err, errors.ErrTruncatedHeader), "got %v", err)
	})

	t.Run("partial header", func(t *testing.T) {
		_, err := assemble(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r")
		assert.True(t, stderrors.Is(err, errors.ErrTruncatedHeader), "got %v", err)
	})

	t.Run("empty chunks only", func(t *testing.T) {
		_, err := assemble(t, "", "")
		assert.True(t, stderrors.Is(err, errors.ErrTruncatedHeader), "got %v", err)
	})
}

func TestAssembler_HeaderTooLarge(t *testing.T) {
	asm := NewAssembler(32)
	err := asm.Consume([]byte("HTTP/1.1 200 OK\r\nX-Padding: " + strings.Repeat("a", 64)))
	assert.True(t, stderrors.Is(err, errors.ErrHeaderTooLarge), "got %v", err)

	asm = NewAssembler(32)
	err = asm.Consume([]byte("HTTP/1.1 200 OK\r\nX-Padding: aaaaaaaaaa\r\n\r\n"))
	assert.True(t, stderrors.Is(err, errors.ErrHeaderTooLarge), "got %v", err)
}

func TestAssembler_HeaderAtLimit(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n\r\n"
	asm := NewAssembler(len(raw))
	require.NoError(t, asm.Consume([]byte(raw+"body beyond the limit")))

	resp, err := asm.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "body beyond the limit", string(resp.Body))
}
