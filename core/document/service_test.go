package document_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/user"
	"github.com/trezcool/matricula/testutil"
)

func upload(name string, content []byte) core.Upload {
	return core.Upload{Filename: name, Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func TestService_UploadOpenDelete(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	content := []byte("%PDF-1.7 diploma")

	doc, err := stack.Documents.Upload(ctx, ana.ID, document.NewDocument{Type: " Diploma ", File: upload("titulo.pdf", content)})
	require.NoError(t, err)
	assert.Equal(t, document.TypeDiploma, doc.Type)
	assert.Equal(t, document.StatusPending, doc.Status)
	assert.Contains(t, doc.Location, ana.ID)

	_, _, err = stack.Documents.Open(ctx, luis, doc.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, rc, err := stack.Documents.Open(ctx, ana, doc.ID)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, stack.Documents.Delete(ctx, ana, doc.ID))
	_, err = stack.Documents.Get(ctx, ana, doc.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = stack.Files.Open(ctx, doc.Location)
	assert.Error(t, err, "the file is removed along with the record")
}

func TestService_Review_concurrent(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	first := stack.CreateAdmin(t, "first")
	second := stack.CreateAdmin(t, "second")
	doc := stack.CreateDocument(t, ana.ID, document.StatusPending)

	var wg sync.WaitGroup
	admins := []user.User{first, second}
	errs := make([]error, len(admins))
	for i := range admins {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stack.Documents.Review(ctx, admins[i], doc.ID, document.Review{Status: document.StatusApproved})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			var derr *core.DomainError
			if assert.ErrorAs(t, err, &derr) {
				assert.Equal(t, "document already reviewed", derr.Msg)
			}
		}
	}
	assert.Equal(t, 1, failed, "exactly one review wins")
}

func TestService_Query(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	stack.CreateDocument(t, ana.ID, document.StatusPending)
	stack.CreateDocument(t, ana.ID, document.StatusRejected)

	docs, err := stack.Documents.Query(ctx, document.QueryFilter{Status: document.StatusRejected})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = stack.Documents.Query(ctx, document.QueryFilter{Type: "pasaporte"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)

	n, err := stack.Documents.CountDocuments(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "every document counts, whatever its status")
}
