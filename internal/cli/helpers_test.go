package cli

import "github.com/fenwick-labs/corpusengine/internal/model"

func mustDefaultCollection(name string) model.Collection {
	return model.Collection{Name: name, Settings: model.DefaultCollectionSettings()}
}
