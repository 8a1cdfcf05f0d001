package models

// RetrievalResult is the outcome of a single retrieval attempt.
//
// Exactly one branch is populated: OK with PayloadPath, Codec and ScratchDir,
// or !OK with Err and Retryable.
type RetrievalResult struct {
	OK          bool
	PayloadPath string // Path to the produced file, inside ScratchDir
	Codec       string // MIME type of the payload
	ScratchDir  string // Directory the payload lives in; owned by the caller on success
	Err         error
	Retryable   bool
}

// Success builds a success result.
func Success(path, codec, scratchDir string) RetrievalResult {
	return RetrievalResult{OK: true, PayloadPath: path, Codec: codec, ScratchDir: scratchDir}
}

// Failure builds a failure result.
func Failure(err error, retryable bool) RetrievalResult {
	return RetrievalResult{Err: err, Retryable: retryable}
}

// WithScratch returns a copy of r bound to dir.
func (r RetrievalResult) WithScratch(dir string) RetrievalResult {
	r.ScratchDir = dir
	return r
}

// Error returns the failure message, or an empty string for a success.
func (r RetrievalResult) Error() string {
	if r.OK || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
