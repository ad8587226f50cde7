package docanalysis

import "strings"

// Role identifies who submitted the document.
type Role string

const (
	RoleClaimant      Role = "claimant"
	RoleDealer        Role = "dealer"
	RoleServiceCenter Role = "service_center"
)

var roleMarkers = []struct {
	marker string
	role   Role
}{
	{"Claimant Information:", RoleClaimant},
	{"Dealer Information:", RoleDealer},
	{"Service Center Information:", RoleServiceCenter},
}

// DetectRole returns the role of the first marker phrase found, checked in the
// fixed order claimant, dealer, service center.
func DetectRole(text string) (Role, bool) {
	for _, m := range roleMarkers {
		if strings.Contains(text, m.marker) {
			return m.role, true
		}
	}
	return "", false
}

func (r Role) subject() (name, place string) {
	switch r {
	case RoleDealer:
		return "The full name of the dealer", "Location: The address of the dealership"
	case RoleServiceCenter:
		return "The name of the service center", "Location: The location of the service center"
	default:
		return "The full name of the customer", "Vehicle Info: Details about the vehicle involved"
	}
}

func buildPrompt(role Role, text string) string {
	name, place := role.subject()
	var b strings.Builder
	b.WriteString("Analyze the following text and extract the following information as a single JSON object with exactly these keys:\n")
	b.WriteString("- Name: " + name + "\n")
	b.WriteString("- " + place + "\n")
	b.WriteString(`- Claim Status: The current status of the claim, which should be one of "Approved", "Rejected", or "Pending"` + "\n")
	b.WriteString("- Claim Date: The date the claim was received, formatted YYYY-MM-DD\n")
	b.WriteString("- Reason: If the claim is rejected, provide the reason; if approved, provide the reason for approval\n")
	b.WriteString("- Items Covered: The item covered in the claim (Component)\n")
	b.WriteString("- Claim ID: The claim number exactly as written in the document\n")
	b.WriteString("Respond with JSON only.\n\n")
	b.WriteString("Here's the text to analyze:\n")
	b.WriteString(text)
	return b.String()
}
