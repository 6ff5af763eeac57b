package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Username", "username"},
		{"FullName", "full_name"},
		{"HTTPCode", "http_code"},
		{"UserID", "user_id"},
		{"XMLParser", "xml_parser"},
		{"getHTTPResponse", "get_http_response"},
		{"already_snake", "already_snake"},
		{"A", "a"},
		{"AB", "ab"},
		{"ABC", "abc"},
		{"", ""},
		{"userInfo", "user_info"},
		{"PHBOrg", "phb_org"},
		{"UserIDs", "user_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, snake(tt.input))
		})
	}
}

func TestPascal(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "UserInfo"},
		{"full_name", "FullName"},
		{"user_id", "UserID"},
		{"http_code", "HTTPCode"},
		{"full-admin", "FullAdmin"},
		{"already", "Already"},
		{"a", "A"},
		{"ab", "Ab"},
		{"a_b", "AB"},
		{"xml_parser", "XMLParser"},
		{"api_url", "APIURL"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, pascal(tt.input))
		})
	}
}

func TestCamel(t *testing.T) {
	assert.Equal(t, "userID", camel("user_id"))
	assert.Equal(t, "fullName", camel("full_name"))
	assert.Equal(t, "name", camel("Name"))
	assert.Equal(t, "", camel(""))
}

func TestLowerCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Email", "email"},
		{"ID", "id"},
		{"URL", "url"},
		{"HTTPCode", "httpCode"},
		{"UserID", "userID"},
		{"email", "email"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lowerCamel(tt.input))
		})
	}
}

func TestPropertyName(t *testing.T) {
	tests := []struct {
		accessor string
		expected string
	}{
		{"GetEmail", "email"},
		{"getName", "name"},
		{"GetUserID", "userID"},
		{"GetID", "id"},
		{"IsActive", "active"},
		{"getHTTPCode", "httpCode"},
		{"Issue", "issue"},
		{"Getter", "getter"},
		{"Get", "get"},
		{"Name", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.accessor, func(t *testing.T) {
			assert.Equal(t, tt.expected, PropertyName(tt.accessor))
		})
	}
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "users", TableName("User"))
	assert.Equal(t, "blog_posts", TableName("BlogPost"))
	assert.Equal(t, "categories", TableName("Category"))
	assert.Equal(t, "addresses", TableName("Address"))
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "user", Singular("users"))
	assert.Equal(t, "blog_post", Singular("blog_posts"))
	assert.Equal(t, "category", Singular("categories"))
}

func TestExportedPascal(t *testing.T) {
	assert.Equal(t, "Email", Pascal("email"))
	assert.Equal(t, "UserID", Pascal("userID"))
	assert.Equal(t, "CreatedAt", Pascal("createdAt"))
	assert.Equal(t, "CreatedAt", Pascal("created_at"))
}

func TestReceiver(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[]T", "t"},
		{"*User", "u"},
		{"UserQuery", "uq"},
		{"HTTPClient", "hc"},
		{"UserValidator", "uv"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Receiver(tt.input))
		})
	}
}
