package dsl

// InstanceCatalogue lists the instance methods every Mongoid document gains
// from including the mixin.
var InstanceCatalogue = []string{
	"save", "save!", "update", "update!", "destroy", "delete", "upsert", "reload",
	"new_record?", "persisted?", "valid?", "changed?",
	"attributes", "attributes=", "assign_attributes", "read_attribute", "write_attribute",
	"changes", "errors", "to_key", "to_param", "model_name", "inspect",
}

// ClassCatalogue lists the class-level methods every Mongoid document gains
// from including the mixin.
var ClassCatalogue = []string{
	"all", "where", "find", "find_by", "find_by!", "first", "last", "count", "exists?", "distinct",
	"create", "create!", "new", "build",
	"update_all", "delete_all", "destroy_all",
	"collection", "database",
}

// DefaultDocumentMarkers are the module names whose inclusion marks a class
// as a Mongoid document.
var DefaultDocumentMarkers = []string{"Mongoid::Document", "ApplicationDocument"}
