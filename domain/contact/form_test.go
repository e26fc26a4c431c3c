package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validForm() *ContactForm {
	return &ContactForm{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Pricing question",
		Message: "How much does the lead scoring cost?",
	}
}

func TestContactForm_Validate(t *testing.T) {
	t.Run("valid form", func(t *testing.T) {
		ok, errs := validForm().Validate()

		assert.True(t, ok)
		assert.Empty(t, errs)
	})

	cases := []struct {
		field   string
		mutate  func(f *ContactForm)
		message string
	}{
		{FieldName, func(f *ContactForm) { f.Name = "A" }, "Name must be at least 2 characters"},
		{FieldEmail, func(f *ContactForm) { f.Email = "not-an-email" }, "Please enter a valid email address"},
		{FieldEmail, func(f *ContactForm) { f.Email = "a b@c.de" }, "Please enter a valid email address"},
		{FieldSubject, func(f *ContactForm) { f.Subject = "Hi" }, "Subject must be at least 5 characters"},
		{FieldMessage, func(f *ContactForm) { f.Message = "short" }, "Message must be at least 10 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.field+" rejected independently", func(t *testing.T) {
			form := validForm()
			tc.mutate(form)

			ok, errs := form.Validate()

			assert.False(t, ok)
			assert.Len(t, errs, 1)
			assert.Equal(t, tc.message, errs.Get(tc.field))
		})
	}

	t.Run("reports every failing field at once", func(t *testing.T) {
		ok, errs := (&ContactForm{}).Validate()

		assert.False(t, ok)
		assert.Len(t, errs, 4)
	})

	t.Run("lengths count characters not bytes", func(t *testing.T) {
		form := validForm()
		form.Name = "Zé"

		ok, _ := form.Validate()
		assert.True(t, ok)
	})
}

func TestContactForm_SetDemoRequest(t *testing.T) {
	t.Run("fills the canned text regardless of prior contents", func(t *testing.T) {
		form := validForm()

		form.SetDemoRequest(true)

		assert.True(t, form.IsDemoRequest)
		assert.Equal(t, DemoSubject, form.Subject)
		assert.Equal(t, DemoMessage, form.Message)
		assert.Equal(t, "Ada Lovelace", form.Name)
	})

	t.Run("turning it off restores the previous text", func(t *testing.T) {
		form := validForm()

		form.SetDemoRequest(true)
		form.SetDemoRequest(true)
		form.SetDemoRequest(false)

		assert.False(t, form.IsDemoRequest)
		assert.Equal(t, "Pricing question", form.Subject)
		assert.Equal(t, "How much does the lead scoring cost?", form.Message)
	})

	t.Run("canned text passes validation", func(t *testing.T) {
		form := &ContactForm{Name: "Bo", Email: "bo@acs.io"}
		form.SetDemoRequest(true)

		ok, _ := form.Validate()
		assert.True(t, ok)
	})
}

func TestContactForm_ResetAndFingerprint(t *testing.T) {
	form := validForm()
	before := form.Fingerprint()

	form.Message = form.Message + "!"
	assert.NotEqual(t, before, form.Fingerprint())

	form.SetDemoRequest(true)
	form.Reset()

	assert.Equal(t, ContactForm{}, *form)
}
