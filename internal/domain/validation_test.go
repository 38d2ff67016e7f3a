package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostPhotoInputValidation(t *testing.T) {
	testCases := []struct {
		name  string
		input PostPhotoInput
		valid bool
		field string
	}{
		{"Valid input", PostPhotoInput{Name: "Dog", Category: CategoryAction}, true, ""},
		{"Valid with description", PostPhotoInput{Name: "Dog", Category: CategorySelfie, Description: "a dog"}, true, ""},
		{"Missing name", PostPhotoInput{Category: CategoryPortrait}, false, "Name"},
		{"Unknown category", PostPhotoInput{Name: "Dog", Category: "BLURRY"}, false, "Category"},
		{"Lowercase category", PostPhotoInput{Name: "Dog", Category: "selfie"}, false, "Category"},
		{"Missing category", PostPhotoInput{Name: "Dog"}, false, "Category"},
	}

	v := NewValidation()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := v.Validate(&tc.input)

			if tc.valid {
				assert.Empty(t, errs)
				return
			}
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tc.field, errs[0].Field)
				assert.Contains(t, errs.Error(), tc.field)
			}
		})
	}
}

func TestCurrentUserContext(t *testing.T) {
	ctx := WithCurrentUser(context.Background(), &User{GithubLogin: "octocat"})
	assert.Equal(t, "octocat", CurrentUser(ctx).GithubLogin)

	assert.Nil(t, CurrentUser(WithCurrentUser(context.Background(), nil)))
}

func TestPhotoURL(t *testing.T) {
	p := &Photo{ID: "42"}
	assert.Equal(t, "/img/photos/42.jpg", p.URL())
	assert.True(t, CategoryGraphic.Valid())
	assert.False(t, PhotoCategory("").Valid())
}
