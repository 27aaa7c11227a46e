package ai

import (
	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/config"
)

// FromEndpoints builds the collaborator set, falling back to the mock for any
// service without a configured URL.
func FromEndpoints(ep config.Endpoints, logger zerolog.Logger) Collaborators {
	var c Collaborators
	var mocked []string

	if ep.Extractor == "" {
		c.Extractor = MockExtractor{}
		mocked = append(mocked, "extractor")
	} else {
		c.Extractor = HTTPExtractor{BaseURL: ep.Extractor}
	}
	if ep.Transcriber == "" {
		c.Transcriber = MockTranscriber{}
		mocked = append(mocked, "transcriber")
	} else {
		c.Transcriber = HTTPTranscriber{BaseURL: ep.Transcriber}
	}
	if ep.Vision == "" {
		c.Vision = MockVision{}
		mocked = append(mocked, "vision")
	} else {
		c.Vision = HTTPVision{BaseURL: ep.Vision}
	}
	if ep.Classifier == "" {
		c.Classifier = MockClassifier{}
		mocked = append(mocked, "classifier")
	} else {
		c.Classifier = HTTPClassifier{BaseURL: ep.Classifier}
	}
	if ep.SLA == "" {
		c.SLA = MockSLAPredictor{}
		mocked = append(mocked, "sla")
	} else {
		c.SLA = HTTPSLAPredictor{BaseURL: ep.SLA}
	}
	// Retrieval and indexing share the same backend.
	if ep.Retrieval == "" {
		c.Retriever = MockRetriever{}
		c.Indexer = MockIndexer{}
		mocked = append(mocked, "retrieval")
	} else {
		c.Retriever = HTTPRetriever{BaseURL: ep.Retrieval}
		c.Indexer = HTTPIndexer{BaseURL: ep.Retrieval}
	}

	if len(mocked) > 0 {
		logger.Info().Strs("services", mocked).Msg("using mock AI collaborators")
	}
	return c
}
