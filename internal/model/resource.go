package model

type ResourceType string

const (
	Video    ResourceType = "video"
	Article  ResourceType = "article"
	Doc      ResourceType = "doc"
	Exercise ResourceType = "exercise"
)
