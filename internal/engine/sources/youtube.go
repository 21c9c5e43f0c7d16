package sources

// YouTube implementation is split across files by responsibility:
//   youtube_id.go         - identifier resolution from free-form input (no network)
//   youtube_innertube.go  - ytInitialPlayerResponse schema and watch page extraction
//   youtube_captions.go   - json3 caption payload normalization
//   youtube_transcript.go - per-video pipeline with caching and optional single-flight
