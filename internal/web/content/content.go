// Package content holds the site copy, loaded once from the embedded site.yaml.
package content

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var siteYAML []byte

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

type Brand struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Tagline     string `yaml:"tagline"`
	LinkedIn    string `yaml:"linkedin"`
	Email       string `yaml:"email"`
}

type FooterSection struct {
	Title string `yaml:"title"`
	Links []Link `yaml:"links"`
}

type Footer struct {
	Sections []FooterSection `yaml:"sections"`
}

type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Marketing struct {
	Eyebrow         string    `yaml:"eyebrow"`
	Headline        string    `yaml:"headline"`
	Intro           string    `yaml:"intro"`
	CTA             Link      `yaml:"cta"`
	FeaturesHeading string    `yaml:"features_heading"`
	Features        []Feature `yaml:"features"`
	AboutHeading    string    `yaml:"about_heading"`
	About           []string  `yaml:"about"`
}

type Solution struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Highlights  []string `yaml:"highlights"`
}

type Conversation struct {
	Lead    string `yaml:"lead"`
	Date    string `yaml:"date"`
	Stage   string `yaml:"stage"`
	Message string `yaml:"message"`
}

type LeadScore struct {
	Name  string `yaml:"name"`
	Score int    `yaml:"score"`
}

type Stat struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type Closing struct {
	Headline  string `yaml:"headline"`
	Body      string `yaml:"body"`
	Primary   Link   `yaml:"primary"`
	Secondary Link   `yaml:"secondary"`
}

type Solutions struct {
	Headline             string         `yaml:"headline"`
	Intro                string         `yaml:"intro"`
	Items                []Solution     `yaml:"items"`
	ConversationsHeading string         `yaml:"conversations_heading"`
	Conversations        []Conversation `yaml:"conversations"`
	Scoring              []LeadScore    `yaml:"scoring"`
	Stats                []Stat         `yaml:"stats"`
	Closing              Closing        `yaml:"closing"`
}

type TeamMember struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	CoFounder bool   `yaml:"co_founder"`
}

type Contact struct {
	Headline       string       `yaml:"headline"`
	Intro          string       `yaml:"intro"`
	FormHeading    string       `yaml:"form_heading"`
	FormIntro      string       `yaml:"form_intro"`
	DemoLabel      string       `yaml:"demo_label"`
	DemoHint       string       `yaml:"demo_hint"`
	SuccessHeading string       `yaml:"success_heading"`
	SuccessBody    string       `yaml:"success_body"`
	SendAnother    string       `yaml:"send_another"`
	InfoHeading    string       `yaml:"info_heading"`
	FollowLabel    string       `yaml:"follow_label"`
	TeamHeading    string       `yaml:"team_heading"`
	Team           []TeamMember `yaml:"team"`
}

type Site struct {
	Brand     Brand     `yaml:"brand"`
	Nav       []Link    `yaml:"nav"`
	CTA       Link      `yaml:"cta"`
	Footer    Footer    `yaml:"footer"`
	Marketing Marketing `yaml:"marketing"`
	Solutions Solutions `yaml:"solutions"`
	Contact   Contact   `yaml:"contact"`
}

var (
	site     *Site
	siteErr  error
	siteOnce sync.Once
)

// Load parses the embedded copy once; every caller shares the result.
func Load() (*Site, error) {
	siteOnce.Do(func() {
		site, siteErr = Parse(siteYAML)
	})
	return site, siteErr
}

func MustLoad() *Site {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

func Parse(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}
	if s.Brand.Name == "" || len(s.Nav) == 0 {
		return nil, fmt.Errorf("parse site content: brand name and navigation are required")
	}
	return &s, nil
}
