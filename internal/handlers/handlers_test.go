package handlers

import (
	"reflect"
	"testing"

	"github.com/Kiril-Hr/blog-source-back/internal/models"
)

func TestLastTags(t *testing.T) {
	posts := []models.Post{
		{Tags: []string{"go", "web"}},
		{Tags: []string{}},
		{Tags: []string{"go", "db", "api"}},
	}

	if got := lastTags(posts, 30); !reflect.DeepEqual(got, []string{"go", "web", "go", "db", "api"}) {
		t.Errorf("lastTags = %q", got)
	}
	if got := lastTags(posts, 3); !reflect.DeepEqual(got, []string{"go", "web", "go"}) {
		t.Errorf("lastTags limited = %q", got)
	}
	if got := lastTags(nil, 30); got == nil || len(got) != 0 {
		t.Errorf("lastTags(nil) = %#v, want empty slice", got)
	}
}

func TestJSONName(t *testing.T) {
	cases := map[string]string{
		"FullName":  "fullName",
		"Email":     "email",
		"AvatarURL": "avatarUrl",
		"ImageURL":  "imageUrl",
		"PostID":    "postId",
		"":          "",
	}
	for in, want := range cases {
		if got := jsonName(in); got != want {
			t.Errorf("jsonName(%q) = %q, want %q", in, got, want)
		}
	}
}
