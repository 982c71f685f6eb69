package identity

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
	"silent", "bouncy", "fuzzy", "plucky", "merry", "peppy", "misty", "sunny", "lucky", "quiet",
}

var creatures = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"seahorse", "starfish", "dolphin", "whale", "narwhal", "penguin", "flamingo", "pelican", "sparrow", "robin",
	"toucan", "parrot", "canary", "dragon", "unicorn", "griffin", "phoenix", "sprite", "pixie", "gnome",
}

var things = []string{
	"pancake", "waffle", "ramen", "taco", "dumpling", "noodle", "muffin", "biscuit", "cupcake", "toffee",
	"sunbeam", "stardust", "pebble", "lantern", "puddle", "comet", "orbit", "nebula", "canyon", "meadow",
	"willow", "ember", "maple", "marble", "breeze", "thimble", "button", "rocket", "cottage", "ridge",
}
