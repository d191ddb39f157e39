package characters

// Character is a read-only projection of one game character, shown on the
// account page and in the shop's delivery-target picker.
type Character struct {
	GUID      int64
	AccountID int64
	Name      string
	RaceID    int
	ClassID   int
	Level     int
	Money     int64
	Online    bool
}

// Race and class display names, keyed by the game's internal ids.
var raceNames = map[int]string{
	1:  "Human",
	2:  "Orc",
	3:  "Dwarf",
	4:  "Night Elf",
	5:  "Undead",
	6:  "Tauren",
	7:  "Gnome",
	8:  "Troll",
	10: "Blood Elf",
	11: "Draenei",
}

var classNames = map[int]string{
	1:  "Warrior",
	2:  "Paladin",
	3:  "Hunter",
	4:  "Rogue",
	5:  "Priest",
	6:  "Death Knight",
	7:  "Shaman",
	8:  "Mage",
	9:  "Warlock",
	11: "Druid",
}

func (c *Character) RaceName() string {
	if name, ok := raceNames[c.RaceID]; ok {
		return name
	}
	return "Unknown"
}

func (c *Character) ClassName() string {
	if name, ok := classNames[c.ClassID]; ok {
		return name
	}
	return "Unknown"
}

// Money in the game is stored in copper; 100 copper = 1 silver,
// 100 silver = 1 gold.
type MoneyParts struct {
	Gold   int64 `json:"gold"`
	Silver int64 `json:"silver"`
	Copper int64 `json:"copper"`
}

func (c *Character) MoneyParts() MoneyParts {
	return MoneyParts{
		Gold:   c.Money / 10000,
		Silver: (c.Money % 10000) / 100,
		Copper: c.Money % 100,
	}
}
