package handler

const (
	outputMarker      = "::set-output name="
	reportPattern     = "report-*.txt"
	resultPattern     = "results-*.msgpack"
	submissionPattern = "submission-*.msgpack"
)
