package validate

import (
	"fmt"
	"regexp"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// collectionRx allows lowercase letters, digits, hyphen and underscore,
// 1-40 chars, matching the collection names the admin console uses
// (projects, skills, social_links, cv-sections).
var collectionRx = regexp.MustCompile(`^[a-z0-9_-]{1,40}$`)

// Collection validates a collection name from the URL path.
func Collection(v string) error {
	if v == "" {
		return fmt.Errorf("collection is required")
	}
	if !collectionRx.MatchString(v) {
		return fmt.Errorf("collection must match %s", collectionRx.String())
	}
	return nil
}

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field, v string, limit int) error {
	if len(v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// ContactSubmission validates input for the public contact form.
func ContactSubmission(name, email, subject, body string) error {
	if err := NonEmpty("name", name); err != nil {
		return err
	}
	if err := MaxLen("name", name, 100); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	if err := NonEmpty("subject", subject); err != nil {
		return err
	}
	if err := MaxLen("subject", subject, 200); err != nil {
		return err
	}
	if err := NonEmpty("body", body); err != nil {
		return err
	}
	if err := MaxLen("body", body, 10000); err != nil {
		return err
	}
	return nil
}
