package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsAllEnabled(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, AllChecks, o.Enabled(), "по умолчанию включены все семь проверок")
}

func TestSetToggleGet(t *testing.T) {
	var o ValidationOptions
	assert.Empty(t, o.Enabled())

	require.NoError(t, o.Set(CheckStamps, true))
	assert.True(t, o.Get(CheckStamps))
	assert.True(t, o.CheckStamps)

	require.NoError(t, o.Toggle(CheckStamps))
	assert.False(t, o.Get(CheckStamps))

	assert.Error(t, o.Set("checkNothing", true))
	assert.Error(t, o.Toggle("checkNothing"))
	assert.False(t, o.Get("checkNothing"))
}

// Порядок Enabled не зависит от порядка включения.
func TestEnabledKeepsCanonicalOrder(t *testing.T) {
	o := OptionsFromSet([]CheckName{CheckCipher, CheckGostOV, CheckSpelling})
	assert.Equal(t, []CheckName{CheckGostOV, CheckSpelling, CheckCipher}, o.Enabled())
}

func TestParseCheckName(t *testing.T) {
	for _, c := range AllChecks {
		got, err := ParseCheckName(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCheckName("CheckGostOV")
	assert.Error(t, err, "имена чувствительны к регистру")
}

func TestIssueTypeValid(t *testing.T) {
	assert.True(t, IssueError.Valid())
	assert.True(t, IssueWarning.Valid())
	assert.False(t, IssueType("info").Valid())
	assert.False(t, IssueType("").Valid())
}

func TestDocumentsPrimaryFirst(t *testing.T) {
	p := DocumentFromBytes("project.pdf", "application/pdf", []byte("%PDF-1"))
	in := AnalysisInput{
		Primary: &p,
		References: []Document{
			DocumentFromBytes("a.pdf", "", nil),
			DocumentFromBytes("b.pdf", "", nil),
		},
	}
	docs := in.Documents()
	require.Len(t, docs, 3)
	assert.Equal(t, "project.pdf", docs[0].Name)
	assert.Equal(t, "a.pdf", docs[1].Name)
	assert.Equal(t, "b.pdf", docs[2].Name)

	assert.Empty(t, AnalysisInput{}.Documents())
}
